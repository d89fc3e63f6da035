package origin

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://play.example.com", "https://play.example.com", true},
		{"https://Play.Example.com:443", "https://play.example.com", true},
		{"http://localhost:8000", "http://localhost:8000", true},
		{"http://localhost:80", "http://localhost", true},
		{"ftp://example.com", "", false},
		{"null", "", false},
		{"", "", false},
		{"https://example.com/path", "", false},
		{"https://user@example.com", "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		name        string
		origin      string
		requestHost string
		allowlist   []string
		want        bool
	}{
		{"same host no allowlist", "https://play.example.com", "play.example.com", nil, true},
		{"cross host no allowlist", "https://evil.example.com", "play.example.com", nil, false},
		{"allowlisted", "https://play.example.com", "gw.example.com", []string{"https://play.example.com"}, true},
		{"not allowlisted", "https://other.example.com", "gw.example.com", []string{"https://play.example.com"}, false},
		{"wildcard", "https://anything.example.com", "gw.example.com", []string{"*"}, true},
		{"malformed origin", "%%%", "gw.example.com", []string{"*"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.origin, tc.requestHost, tc.allowlist); got != tc.want {
				t.Fatalf("Allowed=%v, want %v", got, tc.want)
			}
		})
	}
}
