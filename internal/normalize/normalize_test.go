package normalize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Drill  ", "Drill"},
		// Decomposed "é" (e + combining acute) becomes the precomposed rune.
		{"Cafe\u0301", "Caf\u00e9"},
		{"Caf\u00e9", "Caf\u00e9"},
		{"", ""},
		{"\tShelf A\n", "Shelf A"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Text(tt.input); got != tt.expected {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sku-001", "SKU-001"},
		{" ab 12 ", "AB12"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Code(tt.input); got != tt.expected {
				t.Errorf("Code(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("Email() = %q", got)
	}
}
