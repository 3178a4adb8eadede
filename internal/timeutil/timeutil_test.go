package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate(" 1990-04-02T00:00:00.000Z ")
	require.NoError(t, err)
	assert.Equal(t, "1990-04-02", FormatDate(got))

	_, err = ParseDate("")
	assert.Error(t, err)

	_, err = ParseDate("09/03/2024")
	assert.Error(t, err)
}

func TestParseOptionalDate(t *testing.T) {
	got, err := ParseOptionalDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseOptionalDate("2023-12-31")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2023, got.Year())

	_, err = ParseOptionalDate("not-a-date")
	assert.Error(t, err)
}
