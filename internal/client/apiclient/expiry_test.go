package apiclient

import "testing"

func TestSessionExpired(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    bool
	}{
		{"401 without message", 401, "", true},
		{"401 with unrelated message", 401, "Invalid credentials", true},
		{"token expired", 400, "Token expired", true},
		{"token invalid", 403, "TOKEN INVALID", true},
		{"unauthorized", 403, "Unauthorized access", true},
		{"jwt expired", 500, "jwt expired", true},
		{"session expired", 419, "Your Session Expired", true},
		{"token has expired", 400, "the token has expired, sorry", true},
		{"authentication failed", 403, "Authentication Failed", true},
		{"403 forbidden", 403, "Forbidden", false},
		{"500 generic", 500, "Database down", false},
		{"422 validation", 422, "Validation failed", false},
		{"no message", 500, "", false},
		{"near miss", 400, "token expiring soon", false},
		{"no inference from 419 alone", 419, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SessionExpired(tt.status, tt.message); got != tt.want {
				t.Errorf("SessionExpired(%d, %q) = %v, want %v", tt.status, tt.message, got, tt.want)
			}
		})
	}
}
