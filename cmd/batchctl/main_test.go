package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes batchctl with args and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput, rateUnit, rateService, ingestValidate = false, "oz", "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"ground one pound", []string{"rate", "16", "--service", "ground"}, "ground: $3.00", false},
		{"ground overweight", []string{"rate", "17", "--service", "ground"}, "ground: unavailable", false},
		{"pounds", []string{"rate", "1", "--unit", "lb", "--service", "ground"}, "ground: $3.00", false},
		{"every service", []string{"rate", "8"}, "priority", false},
		{"bad weight", []string{"rate", "heavy"}, "", true},
		{"bad unit", []string{"rate", "1", "--unit", "kg"}, "", true},
		{"bad service", []string{"rate", "1", "--service", "express"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("output = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestPricing(t *testing.T) {
	got, err := run(t, "pricing")
	if err != nil {
		t.Fatalf("pricing error = %v", err)
	}
	for _, want := range []string{"ground", "priority", "up to"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestIngest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	csv := "name,street1,city,state,zip,weight,color\n" +
		"Jane Roe,123 Main St,Springfield,IL,62704,12,red\n" +
		"John Doe,9 Elm St,Boston,MA,,20,blue\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := run(t, "ingest", path)
	if err != nil {
		t.Fatalf("ingest error = %v", err)
	}
	for _, want := range []string{"convention: individual", "invalid: 1", "unrecognized columns: color", "Missing ZIP code"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	if _, err := run(t, "ingest", filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("ingest of a missing file succeeded")
	}
}
