package wx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{
  "observations": [{
    "epoch": 1700000000,
    "obsTimeLocal": "2023-11-14 14:13:20",
    "stationID": "KXXTEST1",
    "humidity": 88,
    "uv": 2.5,
    "winddir": 270,
    "imperial": {
      "temp": 72.4, "dewpt": 55.7, "heatIndex": 74.1, "windChill": 72.4,
      "windGust": 18.3, "windSpeed": 12.1,
      "precipRate": 0.0, "precipTotal": 0.25, "pressure": 29.92
    },
    "metric": {
      "temp": 22.4, "dewpt": 13.2, "heatIndex": 23.4, "windChill": 22.4,
      "windGust": 29.4, "windSpeed": 19.5,
      "precipRate": 0.0, "precipTotal": 6.4, "pressure": 1013.2
    }
  }]
}`

func newTestProjector(t *testing.T) *Projector {
	t.Helper()
	return NewProjector(time.UTC, "", "")
}

func TestProjectStandardUnits(t *testing.T) {
	doc := ParseDocument([]byte(sampleBody))
	obs, err := newTestProjector(t).Project(doc, UnitStandard, DefaultDisplayConfig(UnitStandard))
	require.NoError(t, err)

	assert.Equal(t, "KXXTEST1", obs.StationID)
	assert.Equal(t, int64(1700000000), obs.Epoch)
	assert.Equal(t, "2023-11-14 14:13:20", obs.ObservationTime)
	assert.Equal(t, UnitStandard, obs.Units)

	assert.Equal(t, 72.4, obs.Temperature.Value)
	assert.Equal(t, "72.4°F", obs.Temperature.Display)
	assert.Equal(t, 55.0, obs.DewPoint.Value) // truncated integer-like field
	assert.Equal(t, "55.0°F", obs.DewPoint.Display)
	assert.Equal(t, 29.92, obs.Pressure.Value)
	assert.Equal(t, "29.92 in", obs.Pressure.Display)
	assert.Equal(t, "?", obs.PressureTrend)
	assert.Equal(t, 0.25, obs.PrecipTotal.Value)
	assert.Equal(t, "0.25 in", obs.PrecipTotal.Display)
	assert.Equal(t, 88.0, obs.Humidity.Value)
	assert.Equal(t, "88.0%", obs.Humidity.Display)
	assert.Equal(t, "270", obs.WindDegrees.Display)

	assert.Equal(t, "From 270 degrees at 12.1 MPH Gusting to 18.3 MPH", obs.WindString)
	assert.Equal(t, "270 degrees at 12.1", obs.WindShortString)
}

func TestProjectMetricUnits(t *testing.T) {
	doc := ParseDocument([]byte(sampleBody))
	obs, err := newTestProjector(t).Project(doc, UnitMetric, DefaultDisplayConfig(UnitMetric))
	require.NoError(t, err)

	assert.Equal(t, 22.4, obs.Temperature.Value)
	assert.Equal(t, "22.4°C", obs.Temperature.Display)
	assert.Equal(t, "1013.2 mb", obs.Pressure.Display)
	assert.Equal(t, "From 270 degrees at 19.5 KPH Gusting to 29.4 KPH", obs.WindString)
}

func TestProjectCorruptTemperature(t *testing.T) {
	body := `{"observations":[{"epoch":1700000000,"stationID":"KXXTEST1",
	  "imperial":{"temp":"-999.0"}}]}`

	doc := ParseDocument([]byte(body))
	obs, err := newTestProjector(t).Project(doc, UnitStandard, DefaultDisplayConfig(UnitStandard))
	require.NoError(t, err)

	assert.Equal(t, -99.0, obs.Temperature.Value)
	assert.Equal(t, "--", obs.Temperature.Display)
	assert.True(t, obs.Temperature.Sentinel())
}

func TestProjectMissingFieldsFallBackToSentinels(t *testing.T) {
	doc := ParseDocument([]byte(`{"observations":[{"epoch":1700000000}]}`))
	obs, err := newTestProjector(t).Project(doc, UnitMetric, DefaultDisplayConfig(UnitMetric))
	require.NoError(t, err)

	assert.Equal(t, -99.0, obs.Temperature.Value)
	assert.Equal(t, "--", obs.Temperature.Display)
	assert.Equal(t, -99.0, obs.WindSpeed.Value)
	assert.Equal(t, "", obs.StationID)
}

func TestProjectNoObservations(t *testing.T) {
	doc := ParseDocument([]byte(`{"metadata":{}}`))
	_, err := newTestProjector(t).Project(doc, UnitStandard, DefaultDisplayConfig(UnitStandard))
	require.ErrorIs(t, err, ErrNoObservation)
}

func TestProjectLocalTime24(t *testing.T) {
	doc := ParseDocument([]byte(sampleBody))
	proj := NewProjector(time.UTC, "2006-01-02", "15:04")
	obs, err := proj.Project(doc, UnitStandard, DefaultDisplayConfig(UnitStandard))
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14 22:13", obs.LocalTime24)
}
