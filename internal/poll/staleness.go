package poll

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jlmoray/stationwatch/internal/registry"
	"github.com/jlmoray/stationwatch/internal/telemetry"
)

// EpochStore durably records the last accepted observation epoch per
// device, so a restart cannot regress devices onto stale provider data.
type EpochStore interface {
	SetDeviceEpoch(deviceKey string, epoch int64) error
	DeviceEpochs() (map[string]int64, error)
}

// Detector rejects out-of-order observations and evaluates trigger
// bindings for timeout, sensor-failure and active-alert conditions. The
// provider is known to occasionally deliver months-old cached data;
// accepting it would regress a device's displayed conditions.
type Detector struct {
	epochs    map[string]int64
	store     EpochStore
	triggers  *registry.Triggers
	executor  registry.Executor
	collector telemetry.Collector
	logger    zerolog.Logger
}

// NewDetector loads persisted epochs and binds the detector to the trigger
// table and executor.
func NewDetector(
	store EpochStore,
	triggers *registry.Triggers,
	executor registry.Executor,
	collector telemetry.Collector,
	logger zerolog.Logger,
) (*Detector, error) {
	epochs, err := store.DeviceEpochs()
	if err != nil {
		return nil, err
	}
	if epochs == nil {
		epochs = make(map[string]int64)
	}
	return &Detector{
		epochs:    epochs,
		store:     store,
		triggers:  triggers,
		executor:  executor,
		collector: collector,
		logger:    logger.With().Str("component", "staleness").Logger(),
	}, nil
}

// Accept decides whether an observation with the given epoch may be
// published for a device. An epoch not older than the last accepted one
// advances the device; an older epoch is rejected and the previous
// published state stays in place.
func (d *Detector) Accept(deviceKey string, epoch int64) bool {
	last, tracked := d.epochs[deviceKey]
	if tracked && epoch < last {
		d.logger.Info().
			Str("device", deviceKey).
			Int64("epoch", epoch).
			Int64("lastAccepted", last).
			Msg("latest data are older than data we already have, skipping update")
		d.collector.IncStaleRejected(deviceKey)
		return false
	}

	d.epochs[deviceKey] = epoch
	if err := d.store.SetDeviceEpoch(deviceKey, epoch); err != nil {
		d.logger.Error().Err(err).Str("device", deviceKey).Msg("persist accepted epoch")
	}
	return true
}

// LastAccepted returns a device's last accepted epoch.
func (d *Detector) LastAccepted(deviceKey string) (int64, bool) {
	epoch, ok := d.epochs[deviceKey]
	return epoch, ok
}

// EvaluateTriggers checks every binding watching a device against its
// current published state and emits offline events through the executor.
// Alert bindings fire on every cycle the alert flag remains set; there is
// deliberately no edge detection here.
func (d *Detector) EvaluateTriggers(deviceKey string, state registry.State, now time.Time) {
	for _, binding := range d.triggers.ForDevice(deviceKey) {
		switch binding.Kind {
		case registry.KindOffline:
			if state.Observation == nil || state.Observation.Epoch == 0 {
				continue
			}
			elapsed := now.Sub(time.Unix(state.Observation.Epoch, 0))
			threshold := time.Duration(binding.ThresholdMinutes) * time.Minute

			if elapsed >= threshold {
				d.emit(registry.OfflineEvent{
					DeviceKey: deviceKey,
					TriggerID: binding.ID,
					Reason:    registry.ReasonTimeout,
					Elapsed:   elapsed,
					At:        now,
				})
			}
			// Sensor failure fires independently of elapsed time.
			if state.Observation.Temperature.Sentinel() {
				d.emit(registry.OfflineEvent{
					DeviceKey: deviceKey,
					TriggerID: binding.ID,
					Reason:    registry.ReasonSentinelFailure,
					At:        now,
				})
			}

		case registry.KindAlert:
			if state.AlertActive {
				d.emit(registry.OfflineEvent{
					DeviceKey: deviceKey,
					TriggerID: binding.ID,
					Reason:    registry.ReasonActiveAlert,
					At:        now,
				})
			}
		}
	}
}

func (d *Detector) emit(event registry.OfflineEvent) {
	event.ID = uuid.NewString()
	d.collector.IncOfflineEvent(event.DeviceKey, string(event.Reason))
	d.executor.Execute(event)
}
