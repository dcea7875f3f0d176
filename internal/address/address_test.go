package address

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func goodAddress() Address {
	return Address{
		Name:    "Jane Roe",
		Street1: "123 Main St",
		City:    "Springfield",
		State:   "IL",
		Zip:     "62704",
		Country: "US",
	}
}

func TestHeuristic_Validate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Address)
		wantStatus Status
		wantMsgs   []string
		wantSugg   bool
	}{
		{
			name:       "valid address",
			modify:     func(a *Address) {},
			wantStatus: StatusValid,
			wantMsgs:   []string{},
			wantSugg:   true,
		},
		{
			name: "missing fields short-circuit",
			modify: func(a *Address) {
				a.Name = ""
				a.City = " "
				a.Zip = ""
			},
			wantStatus: StatusInvalid,
			wantMsgs:   []string{"Name is required", "City is required", "ZIP code is required"},
		},
		{
			name:       "short street",
			modify:     func(a *Address) { a.Street1 = "12" },
			wantStatus: StatusInvalid,
			wantMsgs:   []string{"Street address is required"},
		},
		{
			name:       "unknown state is a warning",
			modify:     func(a *Address) { a.State = "ZZ" },
			wantStatus: StatusWarning,
			wantMsgs:   []string{`State "ZZ" may not be a valid US state code`},
			wantSugg:   true,
		},
		{
			name:       "odd zip",
			modify:     func(a *Address) { a.Zip = "6270" },
			wantStatus: StatusWarning,
			wantMsgs:   []string{"ZIP code format may be non-standard"},
			wantSugg:   true,
		},
		{
			name:       "zip whitespace is stripped before checking",
			modify:     func(a *Address) { a.Zip = "62704 - 1234" },
			wantStatus: StatusValid,
			wantMsgs:   []string{},
			wantSugg:   true,
		},
		{
			name:       "po box",
			modify:     func(a *Address) { a.Street1 = "PO Box 42" },
			wantStatus: StatusWarning,
			wantMsgs:   []string{"PO Box addresses may have delivery restrictions"},
			wantSugg:   true,
		},
		{
			name:       "territory code accepted",
			modify:     func(a *Address) { a.State = "pr" },
			wantStatus: StatusValid,
			wantMsgs:   []string{},
			wantSugg:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := goodAddress()
			tt.modify(&a)

			res, err := Heuristic{}.Validate(context.Background(), a)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.wantMsgs, res.Messages); diff != "" {
				t.Errorf("Messages mismatch (-want +got):\n%s", diff)
			}
			if (res.SuggestedAddress != nil) != tt.wantSugg {
				t.Errorf("SuggestedAddress present = %v, want %v", res.SuggestedAddress != nil, tt.wantSugg)
			}
		})
	}
}

func TestHeuristic_SuggestedAddress(t *testing.T) {
	a := goodAddress()
	a.Street2 = "apt 4"
	a.Zip = "62704 "

	res, _ := Heuristic{}.Validate(context.Background(), a)
	if res.SuggestedAddress == nil {
		t.Fatal("SuggestedAddress = nil, want address")
	}
	s := res.SuggestedAddress
	if s.Street1 != "123 MAIN ST" || s.Street2 != "APT 4" || s.City != "SPRINGFIELD" {
		t.Errorf("suggested street/city = %q/%q/%q, want upper-cased", s.Street1, s.Street2, s.City)
	}
	if s.Zip != "62704" {
		t.Errorf("suggested Zip = %q, want %q", s.Zip, "62704")
	}
	if s.Name != "Jane Roe" {
		t.Errorf("suggested Name = %q, want input name kept", s.Name)
	}
}

func TestBasic_Validate(t *testing.T) {
	res, err := Basic{}.Validate(context.Background(), goodAddress())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if res.Status != StatusValid {
		t.Errorf("Status = %v, want %v", res.Status, StatusValid)
	}
	want := []string{"Address validation API unavailable - basic checks passed"}
	if diff := cmp.Diff(want, res.Messages); diff != "" {
		t.Errorf("Messages mismatch (-want +got):\n%s", diff)
	}

	a := goodAddress()
	a.State = ""
	res, _ = Basic{}.Validate(context.Background(), a)
	if res.Status != StatusInvalid {
		t.Errorf("missing state Status = %v, want %v", res.Status, StatusInvalid)
	}
	if res.SuggestedAddress != nil {
		t.Error("invalid result carries a suggested address")
	}
}

type failingValidator struct{ calls int }

func (f *failingValidator) Name() string { return "failing" }

func (f *failingValidator) Validate(context.Context, Address) (Result, error) {
	f.calls++
	return Result{}, errors.New("provider down")
}

type panickingValidator struct{}

func (panickingValidator) Name() string { return "panicking" }

func (panickingValidator) Validate(context.Context, Address) (Result, error) {
	panic("boom")
}

func TestChain_FallsBackOnProviderError(t *testing.T) {
	fv := &failingValidator{}
	chain := NewChain(fv)

	res := chain.Validate(context.Background(), goodAddress())
	if fv.calls != 1 {
		t.Errorf("external calls = %d, want 1 (no retry)", fv.calls)
	}
	if res.Provider != "heuristic" {
		t.Errorf("Provider = %q, want %q", res.Provider, "heuristic")
	}
	if res.Status != StatusValid {
		t.Errorf("Status = %v, want %v", res.Status, StatusValid)
	}
}

func TestChain_FallsBackOnPanic(t *testing.T) {
	chain := NewChain(panickingValidator{})
	res := chain.Validate(context.Background(), goodAddress())
	if res.Provider != "heuristic" {
		t.Errorf("Provider = %q, want %q", res.Provider, "heuristic")
	}
}

func TestChain_Providers(t *testing.T) {
	got := NewChain().Providers()
	want := []string{"heuristic", "basic"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Providers() mismatch (-want +got):\n%s", diff)
	}
}

func TestChain_SchemaRejectsOverlongFields(t *testing.T) {
	a := goodAddress()
	a.City = strings.Repeat("x", 101)

	res := NewChain().Validate(context.Background(), a)
	if res.Status != StatusInvalid {
		t.Fatalf("Status = %v, want %v", res.Status, StatusInvalid)
	}
	if len(res.Messages) != 1 || !strings.HasPrefix(res.Messages[0], "city:") {
		t.Errorf("Messages = %v, want one city message", res.Messages)
	}
}

func TestUSPS_Validate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		wantErr    bool
		wantStatus Status
		wantZip    string
		wantMsg    string
	}{
		{
			name:       "verified",
			body:       `<AddressValidateResponse><Address ID="0"><Address2>123 MAIN ST</Address2><City>SPRINGFIELD</City><State>IL</State><Zip5>62704</Zip5><Zip4>1234</Zip4></Address></AddressValidateResponse>`,
			status:     http.StatusOK,
			wantStatus: StatusValid,
			wantZip:    "62704-1234",
		},
		{
			name:       "address not found",
			body:       `<AddressValidateResponse><Address ID="0"><Error><Number>-2147219401</Number><Description>Address Not Found.</Description></Error></Address></AddressValidateResponse>`,
			status:     http.StatusOK,
			wantStatus: StatusInvalid,
			wantMsg:    "Address Not Found.",
		},
		{
			name:    "authorization failure",
			body:    `<Error><Number>80040B1A</Number><Description>Authorization failure.</Description></Error>`,
			status:  http.StatusOK,
			wantErr: true,
		},
		{
			name:    "server error",
			body:    "",
			status:  http.StatusBadGateway,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("API") != "Verify" {
					t.Errorf("API param = %q, want Verify", r.URL.Query().Get("API"))
				}
				if !strings.Contains(r.URL.Query().Get("XML"), `USERID="user-1"`) {
					t.Errorf("XML param missing USERID: %s", r.URL.Query().Get("XML"))
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewUSPS("user-1", srv.URL, time.Second, 0)
			res, err := p.Validate(context.Background(), goodAddress())
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if tt.wantZip != "" && res.SuggestedAddress.Zip != tt.wantZip {
				t.Errorf("suggested Zip = %q, want %q", res.SuggestedAddress.Zip, tt.wantZip)
			}
			if tt.wantMsg != "" && (len(res.Messages) == 0 || res.Messages[0] != tt.wantMsg) {
				t.Errorf("Messages = %v, want [%q]", res.Messages, tt.wantMsg)
			}
		})
	}
}

func TestUSPS_MissingCredentials(t *testing.T) {
	p := NewUSPS("", "http://127.0.0.1:0", time.Second, 0)
	if _, err := p.Validate(context.Background(), goodAddress()); err == nil {
		t.Error("Validate() error = nil, want not-configured error")
	}
}

func TestGoogle_Validate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus Status
		wantMsgs   []string
	}{
		{
			name:       "complete",
			body:       `{"result":{"verdict":{"addressComplete":true,"validationGranularity":"PREMISE"},"address":{"formattedAddress":"123 Main St, Springfield, IL 62704-1234, USA","postalAddress":{"addressLines":["123 Main St"],"postalCode":"62704-1234"}}}}`,
			wantStatus: StatusValid,
			wantMsgs:   []string{},
		},
		{
			name:       "incomplete",
			body:       `{"result":{"verdict":{"addressComplete":false,"hasUnconfirmedComponents":true,"validationGranularity":"OTHER"}}}`,
			wantStatus: StatusWarning,
			wantMsgs:   []string{"Some address components could not be confirmed", "Address appears incomplete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if r.URL.Query().Get("key") != "k" {
					t.Errorf("key = %q, want %q", r.URL.Query().Get("key"), "k")
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewGoogle("k", srv.URL, time.Second, 0)
			res, err := p.Validate(context.Background(), goodAddress())
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.wantMsgs, res.Messages); diff != "" {
				t.Errorf("Messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChain_TimeoutFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	chain := NewChain(NewGoogle("k", srv.URL, 20*time.Millisecond, 0))

	start := time.Now()
	res := chain.Validate(context.Background(), goodAddress())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Validate took %v, want provider timeout to cut it short", elapsed)
	}
	if res.Provider != "heuristic" {
		t.Errorf("Provider = %q, want %q", res.Provider, "heuristic")
	}
}
