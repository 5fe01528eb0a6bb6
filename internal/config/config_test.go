package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDevices(t *testing.T) {
	specs, err := parseDevices("patio=KCASANFR708/standard; office=geo:37.7793,-122.4193/metric")
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "patio", specs[0].Key)
	assert.Equal(t, "KCASANFR708", specs[0].Location)
	assert.Equal(t, "standard", specs[0].Units)

	assert.Equal(t, "office", specs[1].Key)
	assert.Equal(t, "geo:37.7793,-122.4193", specs[1].Location)
	assert.Equal(t, "metric", specs[1].Units)
}

func TestParseDevicesDefaultsUnits(t *testing.T) {
	specs, err := parseDevices("patio=KCASANFR708")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "standard", specs[0].Units)
}

func TestParseDevicesRejectsMalformedEntry(t *testing.T) {
	_, err := parseDevices("not-a-device")
	require.Error(t, err)
}

func TestParseDevicesRejectsEmpty(t *testing.T) {
	_, err := parseDevices("  ;  ")
	require.Error(t, err)
}

func TestLoadValidatesRequiredFields(t *testing.T) {
	t.Setenv("WUNDERGROUND_API_KEY", "")
	t.Setenv("DEVICES", "patio=KCASANFR708/standard")

	_, err := Load()
	require.Error(t, err, "missing API key must fail validation")
}

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv("WUNDERGROUND_API_KEY", "test-key")
	t.Setenv("DEVICES", "patio=KCASANFR708/standard")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, 500, cfg.DailyCallLimit)
	assert.Equal(t, "15m0s", cfg.PollInterval.String())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1883, cfg.MQTTPort)
}
