package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassed(t *testing.T) {
	deadline := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	testCases := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want bool
	}{
		{name: "day before", now: time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC), want: false},
		{name: "deadline day late evening", now: time.Date(2025, 1, 10, 23, 59, 0, 0, time.UTC), want: false},
		{name: "day after", now: time.Date(2025, 1, 11, 0, 0, 1, 0, time.UTC), want: true},
		{name: "utc still on deadline but berlin past midnight", now: time.Date(2025, 1, 10, 23, 30, 0, 0, time.UTC), loc: berlin, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Passed(deadline, tc.now, tc.loc))
		})
	}
}

func TestFixed(t *testing.T) {
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	c.Advance(26 * time.Hour)
	assert.Equal(t, time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC), c.Now())
	assert.Equal(t, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), Date(c.Now(), nil))
}
