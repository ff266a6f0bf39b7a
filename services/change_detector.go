package services

import (
	"sync"

	"github.com/Ash-333/nepse-data/models"
)

// Change detector domains
const (
	DomainMarketStatus = "marketStatus"
	DomainOngoingIpos  = "ongoingIpos"
	DomainUpcomingIpos = "upcomingIpos"
)

// Change event kinds
const (
	ChangeMarketOpened = "market_opened"
	ChangeMarketClosed = "market_closed"
	ChangeNewIpo       = "new_ipo"
)

// ChangeEvent describes one detected state transition
type ChangeEvent struct {
	Domain  string
	Kind    string
	Details map[string]string
}

// ChangeDetector compares freshly fetched snapshots against the last
// observed one per domain. The first observation of a domain stores the
// snapshot and emits nothing, so a cold start never floods subscribers.
// Snapshots are replaced on every observation whether or not a delta was
// found, so the same change is never emitted twice.
type ChangeDetector struct {
	mu           sync.Mutex
	marketStatus *bool
	ipoSnapshots map[string]map[string]bool
}

// NewChangeDetector creates a detector with no prior state
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{
		ipoSnapshots: make(map[string]map[string]bool),
	}
}

// ObserveMarketStatus records the current open/closed status and returns an
// event when it flipped since the previous observation.
func (d *ChangeDetector) ObserveMarketStatus(live bool) *ChangeEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.marketStatus
	d.marketStatus = &live

	if prev == nil || *prev == live {
		return nil
	}

	kind := ChangeMarketClosed
	if live {
		kind = ChangeMarketOpened
	}
	return &ChangeEvent{
		Domain: DomainMarketStatus,
		Kind:   kind,
	}
}

// ObserveIpos records the current IPO list for a domain and returns one
// event per entry whose identity was absent from the previous snapshot.
// Removals are not notified.
func (d *ChangeDetector) ObserveIpos(domain string, curr []models.IpoEntry) []ChangeEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[string]bool, len(curr))
	for _, e := range curr {
		if id := e.Identity(); id != "" {
			next[id] = true
		}
	}

	prev, seen := d.ipoSnapshots[domain]
	d.ipoSnapshots[domain] = next

	if !seen {
		return nil
	}

	var events []ChangeEvent
	for _, e := range curr {
		id := e.Identity()
		if id == "" || prev[id] {
			continue
		}
		events = append(events, ChangeEvent{
			Domain: domain,
			Kind:   ChangeNewIpo,
			Details: map[string]string{
				"company": e.Name,
				"symbol":  e.Symbol,
				"status":  e.Status,
			},
		})
	}
	return events
}
