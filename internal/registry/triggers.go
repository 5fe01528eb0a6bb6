package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TriggerKind selects what condition a binding watches.
type TriggerKind string

const (
	// KindOffline fires when a device's data times out or carries the
	// sensor-failure sentinel.
	KindOffline TriggerKind = "offline"
	// KindAlert fires while a device's severe-weather-alert flag is set.
	KindAlert TriggerKind = "alert"
)

// EventReason explains why an offline event was emitted.
type EventReason string

const (
	ReasonTimeout         EventReason = "timeout"
	ReasonSentinelFailure EventReason = "sentinel-failure"
	ReasonActiveAlert     EventReason = "active-alert"
)

// Binding associates a device with an offline/alert condition. Offline
// bindings carry the timeout threshold in minutes.
type Binding struct {
	ID               string      `json:"id"`
	DeviceKey        string      `json:"deviceKey"`
	Kind             TriggerKind `json:"kind"`
	ThresholdMinutes int         `json:"thresholdMinutes,omitempty"`
}

// OfflineEvent is handed to the trigger executor when a binding's
// condition holds.
type OfflineEvent struct {
	ID        string        `json:"id"`
	DeviceKey string        `json:"deviceKey"`
	TriggerID string        `json:"triggerId"`
	Reason    EventReason   `json:"reason"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	At        time.Time     `json:"at"`
}

// Executor runs a trigger in response to an offline event. The host
// platform's trigger engine sits behind this boundary.
type Executor interface {
	Execute(event OfflineEvent)
}

// LogExecutor writes events to the log; the default executor when nothing
// else is wired.
type LogExecutor struct {
	Logger zerolog.Logger
}

func (e LogExecutor) Execute(event OfflineEvent) {
	e.Logger.Warn().
		Str("device", event.DeviceKey).
		Str("trigger", event.TriggerID).
		Str("reason", string(event.Reason)).
		Dur("elapsed", event.Elapsed).
		Msg("trigger fired")
}

// MultiExecutor fans one event out to several executors.
type MultiExecutor []Executor

func (m MultiExecutor) Execute(event OfflineEvent) {
	for _, e := range m {
		e.Execute(event)
	}
}

// Triggers is the concurrency-safe trigger-binding table. Bindings are
// registered when an external trigger starts processing and removed when
// it stops.
type Triggers struct {
	mu       sync.RWMutex
	bindings map[string]Binding
	order    []string
}

// NewTriggers creates an empty binding table.
func NewTriggers() *Triggers {
	return &Triggers{bindings: make(map[string]Binding)}
}

// Register adds a binding, assigning an id when the caller supplied none.
func (t *Triggers) Register(b Binding) (Binding, error) {
	if b.DeviceKey == "" {
		return Binding{}, fmt.Errorf("trigger binding requires a device key")
	}
	if b.Kind != KindOffline && b.Kind != KindAlert {
		return Binding{}, fmt.Errorf("unknown trigger kind %q", b.Kind)
	}
	if b.Kind == KindOffline && b.ThresholdMinutes <= 0 {
		return Binding{}, fmt.Errorf("offline trigger requires a positive threshold")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.bindings[b.ID]; dup {
		return Binding{}, fmt.Errorf("trigger %s already registered", b.ID)
	}
	t.bindings[b.ID] = b
	t.order = append(t.order, b.ID)
	return b, nil
}

// Remove deletes a binding by id.
func (t *Triggers) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.bindings[id]; !ok {
		return fmt.Errorf("trigger %s not registered", id)
	}
	delete(t.bindings, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// ForDevice returns the bindings watching one device, in registration
// order.
func (t *Triggers) ForDevice(deviceKey string) []Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Binding
	for _, id := range t.order {
		if b := t.bindings[id]; b.DeviceKey == deviceKey {
			out = append(out, b)
		}
	}
	return out
}

// List returns all bindings in registration order.
func (t *Triggers) List() []Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Binding, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.bindings[id])
	}
	return out
}
