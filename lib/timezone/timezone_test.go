package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateKey(t *testing.T) {
	cases := []struct {
		now    time.Time
		expect string
	}{
		{
			now:    time.Date(2025, time.March, 9, 23, 59, 0, 0, time.UTC),
			expect: "2025-03-09",
		},
		{
			// 23:30 eastern is already the next day in UTC
			now:    time.Date(2025, time.March, 9, 23, 30, 0, 0, time.FixedZone("EST", -5*60*60)),
			expect: "2025-03-10",
		},
		{
			now:    time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
			expect: "2024-12-31",
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, DateKey(test.now))
	}
}
