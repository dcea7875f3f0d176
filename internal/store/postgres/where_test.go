package postgres

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}
	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	whereClause, args := NewWhereBuilder().Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("status", "draft")
	wb.Add("type", "")
	wb.Add("user_id", "u1")

	whereClause, args := wb.Build()

	if want := " WHERE status = $1 AND user_id = $2"; whereClause != want {
		t.Errorf("clause = %q, want %q", whereClause, want)
	}
	if diff := cmp.Diff([]any{"draft", "u1"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestWhereBuilder_AddOwner(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		wantClause string
	}{
		{"anonymous caller sees all", "", ""},
		{"caller sees own and ownerless", "u1", " WHERE (user_id = $1 OR user_id = '')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddOwner("user_id", tt.userID)
			got, _ := wb.Build()
			if got != tt.wantClause {
				t.Errorf("clause = %q, want %q", got, tt.wantClause)
			}
		})
	}
}

func TestWhereBuilder_AddInAndBefore(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	wb := NewWhereBuilder()
	wb.AddIn("status", []string{"draft", "cancelled"})
	wb.AddBefore("last_modified_at", cutoff)

	whereClause, args := wb.Build()

	if want := " WHERE status = ANY($1) AND last_modified_at < $2"; whereClause != want {
		t.Errorf("clause = %q, want %q", whereClause, want)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[1] != cutoff {
		t.Errorf("cutoff arg = %v, want %v", args[1], cutoff)
	}
}

func TestWhereBuilder_AddIn_EmptySkipped(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddIn("status", nil)
	if got, _ := wb.Build(); got != "" {
		t.Errorf("clause = %q, want empty", got)
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		exprs      []string
		wantClause string
		wantArg    string
	}{
		{
			name:       "empty query skipped",
			query:      "",
			exprs:      []string{"label"},
			wantClause: "",
		},
		{
			name:       "single expression",
			query:      "home",
			exprs:      []string{"label"},
			wantClause: ` WHERE (label ILIKE $1)`,
			wantArg:    "%home%",
		},
		{
			name:       "expressions share one argument",
			query:      "acme",
			exprs:      []string{"label", "doc->>'company'"},
			wantClause: ` WHERE (label ILIKE $1 OR doc->>'company' ILIKE $1)`,
			wantArg:    "%acme%",
		},
		{
			name:       "wildcards escaped",
			query:      "50%_off",
			exprs:      []string{"label"},
			wantClause: ` WHERE (label ILIKE $1)`,
			wantArg:    `%50\%\_off%`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddSearch(tt.query, tt.exprs...)

			gotClause, gotArgs := wb.Build()

			if gotClause != tt.wantClause {
				t.Errorf("clause = %q, want %q", gotClause, tt.wantClause)
			}
			if tt.wantArg != "" && (len(gotArgs) != 1 || gotArgs[0] != tt.wantArg) {
				t.Errorf("args = %v, want [%q]", gotArgs, tt.wantArg)
			}
		})
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.NextArgIndex() != 1 {
		t.Errorf("expected initial NextArgIndex to be 1, got %d", wb.NextArgIndex())
	}

	wb.Add("status", "draft")
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected NextArgIndex after 1 add to be 2, got %d", wb.NextArgIndex())
	}

	wb.AddSearch("x", "label", "doc->>'name'")
	if wb.NextArgIndex() != 3 {
		t.Errorf("expected NextArgIndex after search to be 3, got %d", wb.NextArgIndex())
	}
}
