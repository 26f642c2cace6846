package cron

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TimeSeries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		spec     string
		expected string
	}{
		{"30 0 * * *", "00:30"},
		{"30 * * * *", "00:30 23:30 01:00"},
		{"0 0-23 * * *", "00:00 23:00 01:00"},
		{"0,30 * * * *", "00:00 23:30 00:30"},
		{"* * * * *", "00:00 23:59 00:01"},
		{"* 2 * * *", "02:00 02:59 00:01"},
		{"0 8-12 * * *", "08:00 12:00 01:00"},
		{"*/15 6 * * *", "06:00 06:45 00:15"},
	}

	for _, tc := range testCases {
		t.Run(tc.spec, func(t *testing.T) {
			c, err := Parse(tc.spec)
			require.NoError(t, err)

			got, err := c.Time()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParse_Cron(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		spec     string
		expected string
	}{
		{"0 23 * * *", "cron 23:00"},
		{"0 11 * * SUN,TUE", "cron -w 0,2 11:00"},
		{"0 2 1,15 * *", "cron -d 1,15 02:00"},
		{"0 14 1 1 *", "cron -d 1 -m 1 14:00"},
		{"30 22 * * SUN", "cron -w 0 22:30"},
		{"0 0 * * 7", "cron -w 0 00:00"},
		{"1-3/1 2 * JAN-DEC SUN-WED", "cron -w 0,1,2,3 -m 1,2,3,4,5,6,7,8,9,10,11,12 02:01 02:03 00:01"},
		{"3-5/2 3 * JAN-DEC SUN-WED", "cron -w 0,1,2,3 -m 1,2,3,4,5,6,7,8,9,10,11,12 03:03 03:05 00:02"},
	}

	for _, tc := range testCases {
		t.Run(tc.spec, func(t *testing.T) {
			c, err := Parse(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c.Cron().String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	t.Run("uneven series", func(t *testing.T) {
		_, err := Parse("0,10,30 1 * * *")

		var cronErr *Error
		require.True(t, errors.As(err, &cronErr))
		assert.EqualError(t, err, "Cron: Cannot represent 0,10,30 1 * * *")
	})

	t.Run("wrong field count", func(t *testing.T) {
		_, err := Parse("0 1 * *")
		assert.ErrorContains(t, err, "expected 5 fields")
	})

	t.Run("reversed range", func(t *testing.T) {
		_, err := Parse("5-3 1 * * *")
		assert.ErrorContains(t, err, "reversed")
	})

	t.Run("bad token", func(t *testing.T) {
		_, err := Parse("x 1 * * *")
		assert.ErrorContains(t, err, `invalid value "x"`)
	})
}

func TestTime_RejectsRestrictions(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"0 12 15 * *", "0 12 * 1 *", "0 12 * * SUN"} {
		t.Run(spec, func(t *testing.T) {
			c, err := Parse(spec)
			require.NoError(t, err)

			_, err = c.Time()
			assert.Error(t, err)
			_, err = c.Today()
			assert.Error(t, err)
		})
	}
}

func TestIsSeries(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSeries("00:30"))
	assert.True(t, IsSeries("+00:02"))
	assert.True(t, IsSeries("00:30 23:30 00:30"))
	assert.False(t, IsSeries("30 0 * * *"))
}
