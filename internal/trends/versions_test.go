package trends

import (
	"strings"
	"testing"
)

func TestValidateVersionRecency(t *testing.T) {
	cases := []struct {
		name  string
		topic string
		ok    bool
	}{
		{"outdated gemini", "Gemini 1.5 is amazing", false},
		{"current gemini", "Gemini 2.5 features", true},
		{"no product token", "AI is transforming business", true},
		{"unknown product", "Acme 0.1 launches today", true},
		{"product without version", "Claude now writes better code", true},
		{"outdated major only", "Why GPT 4 still matters", false},
		{"vendor prefix", "Google Gemini 1.0 retrospective", false},
		{"future version", "Llama 5 rumors", true},
		{"v prefix", "Midjourney v6 tips and tricks", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateVersionRecency(tc.topic)
			if v.IsValid != tc.ok {
				t.Fatalf("topic %q: expected valid=%v, got %v (%s)", tc.topic, tc.ok, v.IsValid, v.Reason)
			}
		})
	}
}

func TestValidateVersionRecencyReasonNamesBothVersions(t *testing.T) {
	v := ValidateVersionRecency("Gemini 1.5 is amazing")
	if v.IsValid {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(v.Reason, "1.5") || !strings.Contains(v.Reason, "2.5") {
		t.Fatalf("reason should name the mentioned and current versions, got %q", v.Reason)
	}
	if !strings.Contains(strings.ToLower(v.Reason), "gemini") {
		t.Fatalf("reason should name the product, got %q", v.Reason)
	}
}
