package money

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]Amount{
		"10":     1000,
		"10.5":   1050,
		"10.05":  1005,
		" 0.99 ": 99,
		"100.00": 10000,
		"0":      0,
	}
	for input, want := range cases {
		got, err := Parse(input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %d, got %d", input, want, got)
		}
	}
	if _, err := Parse("1.234"); !errors.Is(err, ErrTooManyDecimals) {
		t.Fatalf("expected ErrTooManyDecimals, got %v", err)
	}
	if _, err := Parse("-3.10"); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := Parse("abc"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestFormatMinor(t *testing.T) {
	if got := FormatMinor(5000); got != "50.00" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatMinor(-7); got != "-0.07" {
		t.Fatalf("unexpected format: %s", got)
	}
}

func TestAmountUnmarshalAcceptsStringsAndNumbers(t *testing.T) {
	var payload struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12.50","b":12.5,"c":100}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.A != 1250 || payload.B != 1250 || payload.C != 10000 {
		t.Fatalf("unexpected amounts: %#v", payload)
	}
}

func TestAmountUnmarshalRejectsMalformed(t *testing.T) {
	for _, raw := range []string{`"abc"`, `-5`, `"1.001"`, `null`, `true`, `""`} {
		var amount Amount
		if err := json.Unmarshal([]byte(raw), &amount); err == nil {
			t.Fatalf("%s: expected error, got %d", raw, amount)
		}
	}
}

func TestAmountMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		Amount Amount `json:"amount"`
	}{Amount: 3000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"amount":"30.00"}` {
		t.Fatalf("unexpected json: %s", data)
	}
}
