// Package registry holds the device and trigger tables the poll engine
// works against. It is the in-process stand-in for the host automation
// platform's registries, kept behind small interfaces so the engine never
// talks to the platform directly.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jlmoray/stationwatch/internal/wx"
)

// ErrUnknownDevice is returned for lookups of unconfigured device keys.
var ErrUnknownDevice = errors.New("unknown device")

// Comm status display values. Empty means healthy.
const (
	StatusOK       = ""
	StatusNoComm   = "No comm"
	StatusDisabled = "Disabled"
	StatusQuota    = "Quota"
	StatusBadLoc   = "Bad Loc"
	StatusNoKey    = "No key"
	StatusFailure  = "Error"
)

// Device is one configured observation target. Many devices may reference
// the same location; the engine fetches each location once per cycle.
type Device struct {
	Key      string           `json:"key"`
	Name     string           `json:"name"`
	Location string           `json:"location"`
	Units    wx.UnitSystem    `json:"units"`
	Display  wx.DisplayConfig `json:"-"`
}

// State is a device's published view: the last accepted observation plus a
// comm status.
type State struct {
	Online      bool            `json:"online"`
	Status      string          `json:"status"`
	Observation *wx.Observation `json:"observation,omitempty"`
	AlertActive bool            `json:"alertActive"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Devices is the concurrency-safe device table. The poll loop writes
// states; API handlers read them.
type Devices struct {
	mu      sync.RWMutex
	order   []string
	devices map[string]Device
	enabled map[string]bool
	states  map[string]State
}

// NewDevices builds the table from configured devices, all enabled.
func NewDevices(devices []Device) (*Devices, error) {
	d := &Devices{
		devices: make(map[string]Device, len(devices)),
		enabled: make(map[string]bool, len(devices)),
		states:  make(map[string]State, len(devices)),
	}
	for _, dev := range devices {
		if dev.Key == "" || dev.Location == "" {
			return nil, fmt.Errorf("device %q: key and location are required", dev.Name)
		}
		if _, dup := d.devices[dev.Key]; dup {
			return nil, fmt.Errorf("duplicate device key %q", dev.Key)
		}
		if dev.Units != wx.UnitStandard && dev.Units != wx.UnitMetric {
			return nil, fmt.Errorf("device %q: unknown unit system %q", dev.Key, dev.Units)
		}
		d.devices[dev.Key] = dev
		d.enabled[dev.Key] = true
		d.states[dev.Key] = State{}
		d.order = append(d.order, dev.Key)
	}
	return d, nil
}

// List returns devices in configuration order.
func (d *Devices) List() []Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Device, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.devices[key])
	}
	return out
}

// Get returns one device by key.
func (d *Devices) Get(key string) (Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dev, ok := d.devices[key]
	return dev, ok
}

// Enabled reports whether a device participates in poll cycles.
func (d *Devices) Enabled(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled[key]
}

// SetEnabled flips one device's participation. A disabled device keeps its
// last published observation but shows the Disabled status.
func (d *Devices) SetEnabled(key string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.devices[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, key)
	}
	d.enabled[key] = enabled
	state := d.states[key]
	if enabled {
		state.Status = StatusOK
	} else {
		state.Online = false
		state.Status = StatusDisabled
	}
	state.UpdatedAt = time.Now()
	d.states[key] = state
	return nil
}

// SetAllEnabled flips every device at once (comms kill / unkill).
func (d *Devices) SetAllEnabled(enabled bool) {
	d.mu.RLock()
	keys := append([]string(nil), d.order...)
	d.mu.RUnlock()
	for _, key := range keys {
		_ = d.SetEnabled(key, enabled)
	}
}

// State returns a device's published state.
func (d *Devices) State(key string) (State, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	state, ok := d.states[key]
	return state, ok
}

// Publish replaces a device's observation and marks it healthy.
func (d *Devices) Publish(key string, obs *wx.Observation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.devices[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, key)
	}
	state := d.states[key]
	state.Online = true
	state.Status = StatusOK
	state.Observation = obs
	state.UpdatedAt = time.Now()
	d.states[key] = state
	return nil
}

// MarkStatus flags a device with a comm status for this cycle while
// retaining its previous observation.
func (d *Devices) MarkStatus(key, status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.devices[key]; !ok {
		return
	}
	state := d.states[key]
	state.Online = false
	state.Status = status
	state.UpdatedAt = time.Now()
	d.states[key] = state
}

// SetAlert flips a device's active severe-weather-alert flag.
func (d *Devices) SetAlert(key string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.devices[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, key)
	}
	state := d.states[key]
	state.AlertActive = active
	d.states[key] = state
	return nil
}
