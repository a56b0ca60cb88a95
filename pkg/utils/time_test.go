package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	// Nanosecond precision must survive so creation-order comparisons
	// hold after a round-trip through storage
	first := time.Date(2026, 8, 26, 10, 0, 0, 100, time.UTC)
	second := first.Add(time.Nanosecond)

	gotFirst, err := ParseTimestamp(FormatTimestamp(first))
	require.NoError(t, err)
	gotSecond, err := ParseTimestamp(FormatTimestamp(second))
	require.NoError(t, err)

	assert.True(t, gotFirst.Equal(first))
	assert.True(t, gotFirst.Before(gotSecond))
}

func TestOptionalTimestamp(t *testing.T) {
	assert.Empty(t, FormatOptionalTimestamp(nil))

	parsed, err := ParseOptionalTimestamp("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	now := time.Now()
	parsed, err = ParseOptionalTimestamp(FormatOptionalTimestamp(&now))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.Equal(now))
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("not-a-time")
	require.Error(t, err)
}
