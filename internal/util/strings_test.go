package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"user@host:9000", "user_host_9000"},
		{"db.internal:5432", "db.internal_5432"},
		{"plain-name_1", "plain-name_1"},
		{"a b/c", "a_b_c"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmptyDash(t *testing.T) {
	if got := EmptyDash(""); got != "-" {
		t.Errorf("EmptyDash(\"\") = %q", got)
	}
	if got := EmptyDash("  "); got != "-" {
		t.Errorf("EmptyDash(whitespace) = %q", got)
	}
	if got := EmptyDash("x"); got != "x" {
		t.Errorf("EmptyDash(\"x\") = %q", got)
	}
}
