package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jlmoray/stationwatch/internal/wx"
)

var (
	// ErrNotFound is returned when no observations are recorded for a device.
	ErrNotFound = errors.New("no observations for device")
)

// Record is one accepted observation with the wall time it was published.
type Record struct {
	At          time.Time       `json:"at"`
	Observation *wx.Observation `json:"observation"`
}

// history holds a time-ordered list of accepted observations for a device.
type history struct {
	records []Record
}

// MemoryStore is a concurrency-safe in-memory history of accepted
// observations, one series per device key.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*history

	// retention configuration
	maxHistory int           // max number of records per device
	maxAge     time.Duration // optional max age for records
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*history),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Append records a newly accepted observation for a device and enforces
// retention.
func (s *MemoryStore) Append(deviceKey string, obs *wx.Observation, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.data[deviceKey]
	if !ok {
		h = &history{}
		s.data[deviceKey] = h
	}

	h.records = append(h.records, Record{At: at, Observation: obs})

	// Enforce retention by count.
	if s.maxHistory > 0 && len(h.records) > s.maxHistory {
		over := len(h.records) - s.maxHistory
		h.records = h.records[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := at.Add(-s.maxAge)
		i := 0
		for ; i < len(h.records); i++ {
			if !h.records[i].At.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(h.records) {
			h.records = h.records[i:]
		}
	}
}

// Latest returns the most recent record for a device.
func (s *MemoryStore) Latest(deviceKey string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[deviceKey]
	if !ok || len(h.records) == 0 {
		return Record{}, ErrNotFound
	}
	return h.records[len(h.records)-1], nil
}

// Range returns all records for a device between from and to (inclusive).
func (s *MemoryStore) Range(deviceKey string, from, to time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[deviceKey]
	if !ok || len(h.records) == 0 {
		return nil, ErrNotFound
	}

	var result []Record
	for _, rec := range h.records {
		if !rec.At.Before(from) && !rec.At.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
