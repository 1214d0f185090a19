package util

import (
	"strings"
	"testing"
)

const testKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIDhaCpuEWY4LkjNUdVXvQcvd1dPEtVkNL5IwzNR5u8ye admin@example"

func TestTrimNpid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "clean", input: "alice", expected: "alice"},
		{name: "spaces", input: "  alice  ", expected: "alice"},
		{name: "tabs and newlines", input: "\talice\r\n", expected: "alice"},
		{name: "inner space kept", input: " al ice ", expected: "al ice"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimNpid(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if len(token) != TokenLength {
			t.Fatalf("Expected token length %d, got %d", TokenLength, len(token))
		}
		for _, r := range token {
			if !strings.ContainsRune(tokenAlphabet, r) {
				t.Fatalf("Unexpected character %q in token", r)
			}
		}
		if seen[token] {
			t.Fatalf("Duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestParseAuthorizedKeys(t *testing.T) {
	keys, err := ParseAuthorizedKeys([]string{"", "# comment", testKey})
	if err != nil {
		t.Fatalf("ParseAuthorizedKeys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("Expected 1 key, got %d", len(keys))
	}
	if !strings.HasPrefix(PublicKeyToString(keys[0]), "ssh-ed25519 ") {
		t.Errorf("Unexpected key string: %s", PublicKeyToString(keys[0]))
	}
}

func TestParseAuthorizedKeysInvalid(t *testing.T) {
	if _, err := ParseAuthorizedKeys([]string{"not a key"}); err == nil {
		t.Error("Expected error for invalid key line")
	}
}

func TestGetNameAndVersion(t *testing.T) {
	result := GetNameAndVersion()
	if !strings.HasPrefix(result, Name+" / ") {
		t.Errorf("Expected name prefix, got '%s'", result)
	}
	if GetVersion() == "" {
		t.Error("Version should not be empty")
	}
}

func TestPrettyPrint(t *testing.T) {
	out := PrettyPrint(map[string]int{"a": 1})
	if !strings.Contains(out, "\"a\": 1") {
		t.Errorf("Unexpected output: %s", out)
	}
}
