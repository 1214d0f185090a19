package domain

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
		err      error
	}{
		{input: "online", expected: StatusOnline},
		{input: "not_available", expected: StatusNotAvailable},
		{input: "offline", expected: StatusOffline},
		{input: "", err: ErrMissingStatus},
		{input: "away", err: ErrInvalidStatus},
		{input: "Online", err: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if got != tt.expected {
				t.Errorf("Expected status '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
