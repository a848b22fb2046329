package api

import (
	"strings"
	"testing"
)

func TestNewCompletionID(t *testing.T) {
	id := NewCompletionID()
	if !strings.HasPrefix(id, "chatcmpl-") {
		t.Errorf("id %q missing chatcmpl- prefix", id)
	}
	if len(id) != len("chatcmpl-")+idLength {
		t.Errorf("id %q has wrong length %d", id, len(id))
	}
	if !ValidateCompletionID(id) {
		t.Errorf("generated id %q fails validation", id)
	}
}

func TestNewCompletionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewCompletionID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateCompletionID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"chatcmpl-" + strings.Repeat("a", 24), true},
		{"chatcmpl-" + strings.Repeat("a", 23), false},
		{"resp_" + strings.Repeat("a", 24), false},
		{"chatcmpl-" + strings.Repeat("!", 24), false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidateCompletionID(tt.id); got != tt.valid {
			t.Errorf("ValidateCompletionID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}
