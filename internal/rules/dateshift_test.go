package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 62208000000 ms = 720 days, the offset used throughout the fixtures.
const fixtureOffsetMs = int64(62208000000)

func TestShiftDate_DateOnlyStaysDateOnly(t *testing.T) {
	got, ok := shiftDate("1980-05-15", fixtureOffsetMs)
	require.True(t, ok)
	assert.Equal(t, "1982-05-05", got)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, got)
}

func TestShiftDate_IsoTimestampKeepsShape(t *testing.T) {
	got, ok := shiftDate("1980-05-15T08:30:00Z", fixtureOffsetMs)
	require.True(t, ok)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, got)
	assert.Equal(t, "1982-05-05T08:30:00Z", got)
}

func TestShiftDate_FractionalSecondsKeepShape(t *testing.T) {
	got, ok := shiftDate("2001-01-01T00:00:00.500Z", fixtureOffsetMs)
	require.True(t, ok)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, got)
}

func TestShiftDate_SpaceSeparatedKeepsShape(t *testing.T) {
	got, ok := shiftDate("1999-12-31 23:59:59", fixtureOffsetMs)
	require.True(t, ok)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, got)
}

func TestShiftDate_NegativeOffset(t *testing.T) {
	got, ok := shiftDate("1982-05-05", -fixtureOffsetMs)
	require.True(t, ok)
	assert.Equal(t, "1980-05-15", got)
}

func TestShiftDate_Unparseable(t *testing.T) {
	for _, s := range []string{"05/15/1980", "yesterday", "", "15-05-1980"} {
		got, ok := shiftDate(s, fixtureOffsetMs)
		assert.False(t, ok, "%q should not parse", s)
		assert.Equal(t, s, got, "unparseable input passes through unchanged")
	}
}
