package cli

import (
	"testing"
)

func TestInterpretCopyFlagLiteral(t *testing.T) {
	testCases := []struct {
		input      string
		value      bool
		recognized bool
	}{
		{"", true, true},
		{"true", true, true},
		{"T", true, true},
		{"1", true, true},
		{"yes", true, true},
		{" y ", true, true},
		{"false", false, true},
		{"F", false, true},
		{"0", false, true},
		{"no", false, true},
		{"n", false, true},
		{"maybe", false, false},
		{"2", false, false},
	}
	for _, testCase := range testCases {
		value, recognized := interpretCopyFlagLiteral(testCase.input)
		if value != testCase.value || recognized != testCase.recognized {
			t.Errorf("interpretCopyFlagLiteral(%q) = (%v, %v), want (%v, %v)",
				testCase.input, value, recognized, testCase.value, testCase.recognized)
		}
	}
}

func TestCopyFlagValueSet(t *testing.T) {
	var enabled bool
	flagValue := newCopyFlagValue(&enabled)

	if setErr := flagValue.Set("true"); setErr != nil {
		t.Fatalf("set true: %v", setErr)
	}
	if !enabled {
		t.Fatal("expected the flag to be enabled")
	}
	if flagValue.String() != "true" {
		t.Fatalf("unexpected string value %q", flagValue.String())
	}

	if setErr := flagValue.Set("no"); setErr != nil {
		t.Fatalf("set no: %v", setErr)
	}
	if enabled {
		t.Fatal("expected the flag to be disabled")
	}

	if setErr := flagValue.Set("bogus"); setErr == nil {
		t.Fatal("unrecognized literal must be rejected")
	}
	if flagValue.Type() != "copy" {
		t.Fatalf("unexpected flag type %q", flagValue.Type())
	}
}
