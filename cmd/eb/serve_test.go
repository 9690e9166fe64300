package main

import "testing"

// TestDashboardURL tests that the printed URL reflects the bound port,
// including kernel-assigned ones.
func TestDashboardURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:8787", "http://localhost:8787"},
		{"[::]:53211", "http://localhost:53211"},
		{"0.0.0.0:9000", "http://localhost:9000"},
	}

	for _, tt := range tests {
		if got := dashboardURL(tt.addr); got != tt.want {
			t.Errorf("dashboardURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
