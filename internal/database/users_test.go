package database

import "testing"

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"lowercase passthrough", "ann@x.com", "ann@x.com"},
		{"uppercase folded", "Ann@X.COM", "ann@x.com"},
		{"surrounding whitespace", "  ann@x.com \t", "ann@x.com"},
		{"mixed", " ANN@X.Com ", "ann@x.com"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeEmail(tt.email); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}
