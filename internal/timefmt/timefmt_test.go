package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgo(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"zero", 0, "0s ago"},
		{"seconds", 42 * time.Second, "42s ago"},
		{"just under a minute", 59 * time.Second, "59s ago"},
		{"one minute", 60 * time.Second, "1m ago"},
		{"minutes floor", 119 * time.Second, "1m ago"},
		{"minutes", 17 * time.Minute, "17m ago"},
		{"one hour", time.Hour, "1h ago"},
		{"hours", 23*time.Hour + 59*time.Minute, "23h ago"},
		{"one day", 24 * time.Hour, "1d ago"},
		{"days", 90 * 24 * time.Hour, "90d ago"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Ago(now.Add(-tc.age), now))
		})
	}
}

func TestAgo_FutureTimestampClampsToZero(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Equal(t, "0s ago", Ago(now.Add(5*time.Second), now))
}
