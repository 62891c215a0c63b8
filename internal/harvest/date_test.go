package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISODate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 3, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-03", ISODate(ts))
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "AlreadyISO", in: "2024-01-03", want: "2024-01-03"},
		{name: "Dotted", in: "2024.01.03", want: "2024-01-03"},
		{name: "Slashed", in: "2024/01/03", want: "2024-01-03"},
		{name: "TrailingTime", in: "2024-01-03 10:15", want: "2024-01-03"},
		{name: "Opaque", in: "3 January 2024", want: "3 January 2024"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeDate(tc.in)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}

	t.Run("Empty", func(t *testing.T) {
		assert.Nil(t, NormalizeDate("   "))
	})
}
