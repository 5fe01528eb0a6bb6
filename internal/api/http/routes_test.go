package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlmoray/stationwatch/internal/registry"
	"github.com/jlmoray/stationwatch/internal/store"
	"github.com/jlmoray/stationwatch/internal/wx"
)

func newTestApp(t *testing.T) (*fiber.App, Deps) {
	t.Helper()

	devices, err := registry.NewDevices([]registry.Device{{
		Key:      "patio",
		Name:     "patio",
		Location: "KCASANFR708",
		Units:    wx.UnitStandard,
		Display:  wx.DefaultDisplayConfig(wx.UnitStandard),
	}})
	require.NoError(t, err)

	deps := Deps{
		Devices:  devices,
		Triggers: registry.NewTriggers(),
		History:  store.NewMemoryStore(10, time.Hour),
	}

	app := fiber.New()
	RegisterRoutes(app, deps)
	return app, deps
}

func TestListDevices(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Devices []struct {
			Key     string `json:"key"`
			Enabled bool   `json:"enabled"`
		} `json:"devices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Devices, 1)
	assert.Equal(t, "patio", body.Devices[0].Key)
	assert.True(t, body.Devices[0].Enabled)
}

func TestGetUnknownDeviceReturns404(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/nope", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryValidation(t *testing.T) {
	app, _ := newTestApp(t)

	// Missing from/to parameters should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/patio/history", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// to before from should also return 400.
	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/devices/patio/history?from=2026-01-02T00:00:00Z&to=2026-01-01T00:00:00Z", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryAcceptsUnixSeconds(t *testing.T) {
	app, deps := newTestApp(t)

	obs := &wx.Observation{StationID: "KCASANFR708", Epoch: 1700000000}
	deps.History.Append("patio", obs, time.Unix(1700000000, 0))

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/devices/patio/history?from=1699999000&to=1700001000", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLatestRecord(t *testing.T) {
	app, deps := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/patio/latest", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nothing recorded yet")

	deps.History.Append("patio", &wx.Observation{StationID: "KCASANFR708", Epoch: 100}, time.Unix(100, 0))
	deps.History.Append("patio", &wx.Observation{StationID: "KCASANFR708", Epoch: 200}, time.Unix(200, 0))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/devices/patio/latest", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record store.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	require.NotNil(t, record.Observation)
	assert.Equal(t, int64(200), record.Observation.Epoch)
}

func TestDeviceEnableDisable(t *testing.T) {
	app, deps := newTestApp(t)

	body, _ := json.Marshal(enabledRequest{Enabled: false})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/patio/enabled", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, deps.Devices.Enabled("patio"))

	body, _ = json.Marshal(enabledRequest{Enabled: true})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/devices/enabled", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, deps.Devices.Enabled("patio"))
}

func TestTriggerLifecycle(t *testing.T) {
	app, deps := newTestApp(t)

	body, _ := json.Marshal(triggerRequest{DeviceKey: "patio", Kind: "offline", ThresholdMinutes: 30})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var binding registry.Binding
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&binding))
	assert.NotEmpty(t, binding.ID)
	require.Len(t, deps.Triggers.List(), 1)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/triggers/"+binding.ID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, deps.Triggers.List())
}

func TestTriggerRejectsUnknownDevice(t *testing.T) {
	app, _ := newTestApp(t)

	body, _ := json.Marshal(triggerRequest{DeviceKey: "nope", Kind: "offline", ThresholdMinutes: 30})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAlertFlag(t *testing.T) {
	app, deps := newTestApp(t)

	body, _ := json.Marshal(alertRequest{Active: true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/patio/alert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	state, ok := deps.Devices.State("patio")
	require.True(t, ok)
	assert.True(t, state.AlertActive)
}
