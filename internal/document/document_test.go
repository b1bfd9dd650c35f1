package document

import (
	"testing"
	"time"
)

func TestCycle(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "plain UTC",
			in:   time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
			want: "2026-08",
		},
		{
			name: "month boundary stays UTC",
			// 23:30 UTC-5 on Jan 31 is already February in UTC.
			in:   time.Date(2026, 1, 31, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)),
			want: "2026-02",
		},
		{
			name: "first instant of a month",
			in:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want: "2026-03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cycle(tt.in); got != tt.want {
				t.Errorf("Cycle(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
