package geo

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePassesThroughStationIDs(t *testing.T) {
	r := NewResolver("", zerolog.Nop())

	got, err := r.Resolve("KCASANFR708")
	require.NoError(t, err)
	assert.Equal(t, "KCASANFR708", got)

	got, err = r.Resolve("geo:48.2082,16.3738")
	require.NoError(t, err)
	assert.Equal(t, "geo:48.2082,16.3738", got)
}

func TestResolveCitySpecNeedsAPIKey(t *testing.T) {
	r := NewResolver("", zerolog.Nop())
	_, err := r.Resolve("city:Vienna,AT")
	require.Error(t, err)
}

func TestResolveRejectsEmptyCity(t *testing.T) {
	r := NewResolver("some-key", zerolog.Nop())
	_, err := r.Resolve("city:  ")
	require.Error(t, err)
}
