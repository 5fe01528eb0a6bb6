package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStringRoundTrip(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetString("referenceDate", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got, "missing key yields the default")

	require.NoError(t, s.SetString("referenceDate", "2026-08-31"))
	require.NoError(t, s.SetString("referenceDate", "2026-09-01"), "upsert overwrites")

	got, err = s.GetString("referenceDate", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", got)
}

func TestIntAndBoolRoundTrip(t *testing.T) {
	s := openTestStore(t)

	n, err := s.GetInt("callsToday", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.NoError(t, s.SetInt("callsToday", 42))
	n, err = s.GetInt("callsToday", 7)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	b, err := s.GetBool("limitReached", false)
	require.NoError(t, err)
	assert.False(t, b)

	require.NoError(t, s.SetBool("limitReached", true))
	b, err = s.GetBool("limitReached", false)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestDeviceEpochsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetDeviceEpoch("patio", 1700000000))
	require.NoError(t, s.SetDeviceEpoch("patio", 1700000600), "newer epoch overwrites")
	require.NoError(t, s.SetDeviceEpoch("office", 1700000100))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	epochs, err := s.DeviceEpochs()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"patio":  1700000600,
		"office": 1700000100,
	}, epochs)
}
