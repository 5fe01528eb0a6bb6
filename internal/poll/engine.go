// Package poll runs the ingestion cycle: fetch raw observations per
// location under the daily quota, project them into normalized device
// states, and gate publication on observation freshness.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jlmoray/stationwatch/internal/provider"
	"github.com/jlmoray/stationwatch/internal/quota"
	"github.com/jlmoray/stationwatch/internal/registry"
	"github.com/jlmoray/stationwatch/internal/store"
	"github.com/jlmoray/stationwatch/internal/telemetry"
	"github.com/jlmoray/stationwatch/internal/wx"
)

// Provider fetches the raw observation document for one location.
type Provider interface {
	Fetch(ctx context.Context, location string, units wx.UnitSystem) (wx.Document, error)
}

// ObservationSink receives every accepted observation; the MQTT publisher
// implements it.
type ObservationSink interface {
	PublishObservation(deviceKey string, obs *wx.Observation) error
}

// Engine owns the per-cycle state (fetch cache) and drives one sequential
// pass over all devices. Quota is a strict global budget, so there is no
// parallel fan-out: locations are fetched one at a time and the context is
// checked between them, never mid-fetch.
type Engine struct {
	devices   *registry.Devices
	detector  *Detector
	provider  Provider
	projector *wx.Projector
	quota     *quota.Tracker
	cache     *FetchCache
	history   *store.MemoryStore
	sinks     []ObservationSink
	collector telemetry.Collector
	logger    zerolog.Logger

	// mu serializes scheduled cycles with manual refreshes.
	mu sync.Mutex
}

// NewEngine wires the cycle engine.
func NewEngine(
	devices *registry.Devices,
	detector *Detector,
	prov Provider,
	projector *wx.Projector,
	tracker *quota.Tracker,
	history *store.MemoryStore,
	collector telemetry.Collector,
	logger zerolog.Logger,
) *Engine {
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &Engine{
		devices:   devices,
		detector:  detector,
		provider:  prov,
		projector: projector,
		quota:     tracker,
		cache:     NewFetchCache(),
		history:   history,
		collector: collector,
		logger:    logger.With().Str("component", "poll").Logger(),
	}
}

// AddSink registers an observation sink. Not safe to call once cycles run.
func (e *Engine) AddSink(sink ObservationSink) {
	e.sinks = append(e.sinks, sink)
}

// RunCycle executes one full poll cycle. Nothing in here is fatal: every
// failure mode degrades to a per-device or per-cycle status.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	if err := e.quota.CheckDay(now); err != nil {
		e.logger.Error().Err(err).Msg("quota day check failed")
	}

	e.cache.Clear()

	for _, dev := range e.devices.List() {
		// Stop requests abort between locations, not mid-fetch.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !e.devices.Enabled(dev.Key) {
			e.logger.Debug().Str("device", dev.Key).Msg("device communication is disabled, skipping")
			e.devices.MarkStatus(dev.Key, registry.StatusDisabled)
			continue
		}

		e.updateDevice(ctx, dev, now)
	}

	// Trigger evaluation runs after the device pass so it sees this
	// cycle's published states.
	for _, dev := range e.devices.List() {
		if !e.devices.Enabled(dev.Key) {
			continue
		}
		if state, ok := e.devices.State(dev.Key); ok {
			e.detector.EvaluateTriggers(dev.Key, state, now)
		}
	}

	e.collector.SetQuotaRemaining(e.quota.Remaining())
	e.collector.ObserveCycleDuration(time.Since(started).Seconds())
	e.logger.Debug().
		Strs("locations", e.cache.Locations()).
		Dur("took", time.Since(started)).
		Msg("poll cycle complete")
	return nil
}

func (e *Engine) updateDevice(ctx context.Context, dev registry.Device, now time.Time) {
	doc, cached := e.cache.Get(dev.Location)
	if !cached {
		// A location is attempted once per cycle. Sibling devices of a
		// failed location inherit its failure status without refetching;
		// the retry happens on the next scheduled cycle.
		if status, failed := e.cache.Failed(dev.Location); failed {
			e.devices.MarkStatus(dev.Key, status)
			return
		}

		if err := e.quota.Allow(); err != nil {
			if errors.Is(err, quota.ErrQuotaExceeded) {
				e.devices.MarkStatus(dev.Key, registry.StatusQuota)
				return
			}
			e.logger.Error().Err(err).Str("device", dev.Key).Msg("quota accounting failed")
			e.devices.MarkStatus(dev.Key, registry.StatusNoComm)
			return
		}

		e.collector.IncProviderCall(dev.Location)
		fetched, err := e.provider.Fetch(ctx, dev.Location, dev.Units)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("device", dev.Key).
				Str("location", dev.Location).
				Msg("unable to reach the provider, sleeping until next scheduled poll")
			e.collector.IncFetchFailure(dev.Location)
			status := registry.StatusNoComm
			if errors.Is(err, provider.ErrNoAPIKey) {
				status = registry.StatusNoKey
			}
			e.cache.MarkFailed(dev.Location, status)
			e.devices.MarkStatus(dev.Key, status)
			return
		}

		// Only a completed download is billed against the daily budget.
		if err := e.quota.RecordCall(); err != nil {
			e.logger.Error().Err(err).Str("device", dev.Key).Msg("quota accounting failed")
		}
		doc = fetched
		e.cache.Put(dev.Location, doc)
	}

	if doc.IsEmpty() {
		e.logger.Error().
			Str("device", dev.Key).
			Str("location", dev.Location).
			Msg("location query not found, check the device location")
		e.devices.MarkStatus(dev.Key, registry.StatusBadLoc)
		return
	}

	obs, err := e.projector.Project(doc, dev.Units, dev.Display)
	if err != nil {
		// Isolated to this device; the cycle continues for the others.
		e.logger.Error().Err(err).Str("device", dev.Key).Msg("problem parsing weather device data")
		e.devices.MarkStatus(dev.Key, registry.StatusFailure)
		return
	}

	if !e.detector.Accept(dev.Key, obs.Epoch) {
		// Soft rejection: previous published state stays in place.
		return
	}

	if err := e.devices.Publish(dev.Key, obs); err != nil {
		e.logger.Error().Err(err).Str("device", dev.Key).Msg("publish device state")
		return
	}
	if e.history != nil {
		e.history.Append(dev.Key, obs, now)
	}
	for _, sink := range e.sinks {
		if err := sink.PublishObservation(dev.Key, obs); err != nil {
			e.logger.Warn().Err(err).Str("device", dev.Key).Msg("observation sink failed")
		}
	}
}

// Refresh runs one cycle outside the schedule (menu/action refresh).
func (e *Engine) Refresh(ctx context.Context) error {
	if err := e.RunCycle(ctx, time.Now()); err != nil {
		return fmt.Errorf("manual refresh: %w", err)
	}
	return nil
}
