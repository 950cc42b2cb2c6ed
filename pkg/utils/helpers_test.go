package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2018, time.March, 5, 14, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2018-03-05 14:30:00",
		"2018-03-05T14:30:00Z",
		"2018-03-05T14:30:00",
		"2018-03-05 14:30",
		"03/05/2018 14:30",
	} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(want), s)
	}

	got, err := ParseTimestamp("2018-03-05")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2018, time.March, 5, 0, 0, 0, 0, time.UTC)))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestFindColumn(t *testing.T) {
	header := []string{"Timestamp", " out.electricity ", "TEMP"}
	assert.Equal(t, 0, FindColumn(header, []string{"timestamp"}))
	assert.Equal(t, 1, FindColumn(header, []string{"out.electricity"}))
	assert.Equal(t, 2, FindColumn(header, []string{"temperature", "temp"}))
	assert.Equal(t, -1, FindColumn(header, []string{"natural_gas"}))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("bogus", time.Minute))
}
