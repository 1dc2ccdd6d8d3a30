package repository

import "testing"

func TestResolveTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		supplied string
		prior    string
		now      string
		want     string
	}{
		{
			name:     "supplied wins over prior and now",
			supplied: "2025-01-01T00:00:00Z",
			prior:    "2024-01-01T00:00:00Z",
			now:      "2026-01-01T00:00:00Z",
			want:     "2025-01-01T00:00:00Z",
		},
		{
			name:  "prior wins over now",
			prior: "2024-01-01T00:00:00Z",
			now:   "2026-01-01T00:00:00Z",
			want:  "2024-01-01T00:00:00Z",
		},
		{
			name: "now when nothing else supplied",
			now:  "2026-01-01T00:00:00Z",
			want: "2026-01-01T00:00:00Z",
		},
		{
			name:     "supplied wins with no prior",
			supplied: "2025-01-01T00:00:00Z",
			now:      "2026-01-01T00:00:00Z",
			want:     "2025-01-01T00:00:00Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveTimestamp(tt.supplied, tt.prior, tt.now)
			if got != tt.want {
				t.Errorf("resolveTimestamp(%q, %q, %q) = %q, want %q",
					tt.supplied, tt.prior, tt.now, got, tt.want)
			}
		})
	}
}
