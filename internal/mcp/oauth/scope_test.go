package oauth

import "testing"

func TestNormalizeScope(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.googleapis.com/auth/userinfo.email", "email"},
		{"https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile openid", "email profile openid"},
		{"openid email profile", "openid email profile"},
		{"https://www.googleapis.com/auth/calendar.readonly", "calendar.readonly"},
		{"  openid   https://www.googleapis.com/auth/userinfo.email  ", "openid email"},
		{"", DefaultScope},
		{"   ", DefaultScope},
	}

	for _, tt := range tests {
		if got := NormalizeScope(tt.in); got != tt.want {
			t.Errorf("NormalizeScope(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
