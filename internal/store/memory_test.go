package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlmoray/stationwatch/internal/wx"
)

func obsAt(epoch int64) *wx.Observation {
	return &wx.Observation{StationID: "KCASANFR708", Epoch: epoch}
}

func TestLatest(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Unix(1700000000, 0)

	_, err := s.Latest("patio")
	require.ErrorIs(t, err, ErrNotFound)

	s.Append("patio", obsAt(1), base)
	s.Append("patio", obsAt(2), base.Add(15*time.Minute))

	rec, err := s.Latest("patio")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Observation.Epoch)
}

func TestCountRetention(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Unix(1700000000, 0)

	for i := int64(1); i <= 4; i++ {
		s.Append("patio", obsAt(i), base.Add(time.Duration(i)*time.Minute))
	}

	recs, err := s.Range("patio", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(3), recs[0].Observation.Epoch)
	assert.Equal(t, int64(4), recs[1].Observation.Epoch)
}

func TestAgeRetention(t *testing.T) {
	s := NewMemoryStore(0, 30*time.Minute)
	base := time.Unix(1700000000, 0)

	s.Append("patio", obsAt(1), base)
	s.Append("patio", obsAt(2), base.Add(time.Hour))

	recs, err := s.Range("patio", base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), recs[0].Observation.Epoch)
}

func TestRangeBoundsInclusive(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Unix(1700000000, 0)

	s.Append("patio", obsAt(1), base)
	s.Append("patio", obsAt(2), base.Add(10*time.Minute))
	s.Append("patio", obsAt(3), base.Add(20*time.Minute))

	recs, err := s.Range("patio", base, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = s.Range("patio", base.Add(time.Hour), base.Add(2*time.Hour))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeriesAreIndependent(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Unix(1700000000, 0)

	s.Append("patio", obsAt(1), base)

	_, err := s.Latest("office")
	require.ErrorIs(t, err, ErrNotFound)
}
