package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"unknown", "unknown"},
		{"", "unknown"},
		{"user@", "unknown"},
		{"a@b@c", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractUserDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{0, "none"},
		{200, "2xx"},
		{204, "2xx"},
		{401, "4xx"},
		{503, "5xx"},
		{42, "unknown"},
		{700, "unknown"},
	}

	for _, tt := range tests {
		if got := StatusClass(tt.code); got != tt.expected {
			t.Errorf("StatusClass(%d) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}
