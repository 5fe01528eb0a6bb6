// Package quota tracks the daily provider call budget. The budget day
// rolls over in one fixed reference timezone (the provider bills against
// its own day boundary, not the host machine's), and the counter state is
// persisted so a process restart cannot grant a fresh budget.
package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQuotaExceeded signals that the daily call budget is spent; the caller
// must skip the fetch and wait out the remaining poll interval.
var ErrQuotaExceeded = errors.New("daily call quota exceeded")

// ReferenceZone is the timezone anchoring the provider's billing day.
const ReferenceZone = "America/Los_Angeles"

const dateLayout = "2006-01-02"

// Persisted preference keys.
const (
	keyReferenceDate = "referenceDate"
	keyCallsToday    = "callsToday"
	keyDailyLimit    = "dailyLimit"
	keyLimitReached  = "limitReached"
)

// Store is the durable backing for quota state.
type Store interface {
	GetString(key, def string) (string, error)
	SetString(key, value string) error
	GetInt(key string, def int) (int, error)
	SetInt(key string, value int) error
	GetBool(key string, def bool) (bool, error)
	SetBool(key string, value bool) error
}

// Hook runs once when the budget day rolls over, before any calls are
// recorded for the new day. Used for once-daily housekeeping such as the
// update check.
type Hook func(now time.Time)

// State is a read-only snapshot of the tracker.
type State struct {
	ReferenceDate string `json:"referenceDate"`
	CallsToday    int    `json:"callsToday"`
	DailyLimit    int    `json:"dailyLimit"`
	LimitReached  bool   `json:"limitReached"`
}

// Tracker accounts provider calls against the daily budget. The poll loop
// is its only writer; the mutex exists for API readers.
type Tracker struct {
	mu     sync.Mutex
	store  Store
	zone   *time.Location
	logger zerolog.Logger
	hooks  []Hook

	referenceDate string
	callsToday    int
	dailyLimit    int
	limitReached  bool
}

// New loads persisted quota state and binds the tracker to the reference
// timezone. dailyLimit must be positive and overrides any persisted limit,
// it is a configuration value rather than accumulated state.
func New(store Store, zone *time.Location, dailyLimit int, logger zerolog.Logger) (*Tracker, error) {
	if dailyLimit <= 0 {
		return nil, fmt.Errorf("daily limit must be positive, got %d", dailyLimit)
	}
	if zone == nil {
		loaded, err := time.LoadLocation(ReferenceZone)
		if err != nil {
			return nil, fmt.Errorf("load reference timezone: %w", err)
		}
		zone = loaded
	}

	t := &Tracker{
		store:      store,
		zone:       zone,
		logger:     logger.With().Str("component", "quota").Logger(),
		dailyLimit: dailyLimit,
	}

	var err error
	if t.referenceDate, err = store.GetString(keyReferenceDate, ""); err != nil {
		return nil, err
	}
	if t.callsToday, err = store.GetInt(keyCallsToday, 0); err != nil {
		return nil, err
	}
	if t.limitReached, err = store.GetBool(keyLimitReached, false); err != nil {
		return nil, err
	}
	if err := store.SetInt(keyDailyLimit, dailyLimit); err != nil {
		return nil, err
	}

	return t, nil
}

// OnRollover registers a hook fired on every day rollover.
func (t *Tracker) OnRollover(h Hook) {
	t.mu.Lock()
	t.hooks = append(t.hooks, h)
	t.mu.Unlock()
}

// CheckDay compares the current date in the reference timezone against the
// persisted reference date. A newer date resets the counter and the limit
// flag and fires the rollover hooks; otherwise this is a no-op.
func (t *Tracker) CheckDay(now time.Time) error {
	t.mu.Lock()
	today := now.In(t.zone).Format(dateLayout)

	if t.referenceDate == "" {
		t.logger.Debug().Str("date", today).Msg("initializing quota reference date")
		t.referenceDate = today
		err := t.persistLocked()
		t.mu.Unlock()
		return err
	}

	if today <= t.referenceDate {
		t.mu.Unlock()
		return nil
	}

	t.logger.Info().
		Str("previous", t.referenceDate).
		Str("date", today).
		Msg("new budget day, resetting call counter")

	t.referenceDate = today
	t.callsToday = 0
	t.limitReached = false
	err := t.persistLocked()
	hooks := append([]Hook(nil), t.hooks...)
	t.mu.Unlock()

	for _, h := range hooks {
		h(now)
	}
	return err
}

// Allow reports whether another provider call fits today's budget. When
// the budget is spent it sets the limit flag and returns ErrQuotaExceeded.
// Allow never spends budget; only a completed download is billed, through
// RecordCall.
func (t *Tracker) Allow() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.callsToday >= t.dailyLimit {
		if !t.limitReached {
			t.logger.Warn().
				Int("limit", t.dailyLimit).
				Msg("daily call limit reached, taking the rest of the day off")
		}
		t.limitReached = true
		if err := t.persistLocked(); err != nil {
			return err
		}
		return ErrQuotaExceeded
	}

	if t.limitReached {
		t.limitReached = false
		if err := t.persistLocked(); err != nil {
			return err
		}
	}
	return nil
}

// RecordCall accounts one completed provider call. Callers gate on Allow
// first and bill only after a successful download, so failed fetches cost
// no budget.
func (t *Tracker) RecordCall() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callsToday++
	t.logger.Debug().
		Int("calls", t.callsToday).
		Int("remaining", t.dailyLimit-t.callsToday).
		Msg("provider call recorded")
	return t.persistLocked()
}

// LimitReached reports whether the budget is spent for the current day.
func (t *Tracker) LimitReached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limitReached
}

// Remaining returns the calls left in today's budget.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.callsToday >= t.dailyLimit {
		return 0
	}
	return t.dailyLimit - t.callsToday
}

// Snapshot returns a copy of the current quota state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		ReferenceDate: t.referenceDate,
		CallsToday:    t.callsToday,
		DailyLimit:    t.dailyLimit,
		LimitReached:  t.limitReached,
	}
}

func (t *Tracker) persistLocked() error {
	if err := t.store.SetString(keyReferenceDate, t.referenceDate); err != nil {
		return err
	}
	if err := t.store.SetInt(keyCallsToday, t.callsToday); err != nil {
		return err
	}
	return t.store.SetBool(keyLimitReached, t.limitReached)
}
