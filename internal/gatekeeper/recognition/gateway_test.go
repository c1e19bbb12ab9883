package recognition

import "testing"

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc123", "ABC123"},
		{"ABC 123", "ABC123"},
		{"  ab c 12 3  ", "ABC123"},
		{"xyz\t789", "XYZ789"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizePlate(tc.in); got != tc.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPersonIDFromExternalID(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"resident:31", 31, true},
		{"31", 31, true},
		{"resident:31:backup", 31, true},
		{"user_042", 42, true},
		{"resident:", 0, false},
		{"", 0, false},
		{"no-digits-here", 0, false},
	}
	for _, tc := range cases {
		got, ok := personIDFromExternalID(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("personIDFromExternalID(%q) = (%d, %v), want (%d, %v)",
				tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
