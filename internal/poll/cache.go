package poll

import (
	"github.com/jlmoray/stationwatch/internal/wx"
)

// FetchCache dedupes raw provider responses within one poll cycle. It is
// cleared at cycle start and populated at most once per location, so a
// second device referencing the same location reuses the cached response
// and costs no additional quota. Failed locations are remembered for the
// cycle too; a location is attempted once, success or not, and retries
// wait for the next scheduled cycle. Only the poll goroutine touches it.
type FetchCache struct {
	docs   map[string]wx.Document
	failed map[string]string
}

// NewFetchCache creates an empty cache.
func NewFetchCache() *FetchCache {
	c := &FetchCache{}
	c.Clear()
	return c
}

// Clear drops all cached responses and failure marks; called at the start
// of every cycle.
func (c *FetchCache) Clear() {
	c.docs = make(map[string]wx.Document)
	c.failed = make(map[string]string)
}

// Get returns the cached response for a location, if fetched this cycle.
func (c *FetchCache) Get(location string) (wx.Document, bool) {
	doc, ok := c.docs[location]
	return doc, ok
}

// Put stores a location's raw response for the remainder of the cycle.
func (c *FetchCache) Put(location string, doc wx.Document) {
	c.docs[location] = doc
}

// MarkFailed records that a location's fetch failed this cycle, with the
// device status the failure maps to.
func (c *FetchCache) MarkFailed(location, status string) {
	c.failed[location] = status
}

// Failed returns the failure status for a location, if it already failed
// this cycle.
func (c *FetchCache) Failed(location string) (string, bool) {
	status, ok := c.failed[location]
	return status, ok
}

// Locations lists the locations fetched this cycle.
func (c *FetchCache) Locations() []string {
	out := make([]string, 0, len(c.docs))
	for location := range c.docs {
		out = append(out, location)
	}
	return out
}
