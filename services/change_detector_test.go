package services

import (
	"testing"

	"github.com/Ash-333/nepse-data/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveMarketStatusColdStartEmitsNothing(t *testing.T) {
	d := NewChangeDetector()

	assert.Nil(t, d.ObserveMarketStatus(true))
	assert.Nil(t, d.ObserveMarketStatus(false))
}

func TestObserveMarketStatusFlipEmitsOnce(t *testing.T) {
	d := NewChangeDetector()

	require.Nil(t, d.ObserveMarketStatus(false))

	event := d.ObserveMarketStatus(true)
	require.NotNil(t, event)
	assert.Equal(t, DomainMarketStatus, event.Domain)
	assert.Equal(t, ChangeMarketOpened, event.Kind)

	// Same status again: the snapshot was replaced, so no repeat
	assert.Nil(t, d.ObserveMarketStatus(true))

	event = d.ObserveMarketStatus(false)
	require.NotNil(t, event)
	assert.Equal(t, ChangeMarketClosed, event.Kind)
}

func TestObserveIposColdStartEmitsNothing(t *testing.T) {
	d := NewChangeDetector()

	events := d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Name: "Alpha Hydro", Symbol: "AHL", Status: "Open"},
	})
	assert.Empty(t, events)

	// The cold-start snapshot was stored: a repeat is not "new"
	events = d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Name: "Alpha Hydro", Symbol: "AHL", Status: "Open"},
	})
	assert.Empty(t, events)
}

func TestObserveIposEmitsOnlyNewEntries(t *testing.T) {
	d := NewChangeDetector()

	d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Name: "Alpha Hydro", Symbol: "AHL"},
	})

	events := d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Name: "Alpha Hydro", Symbol: "AHL"},
		{Name: "Beta Bank", Symbol: "BBL", Status: "Open"},
	})
	require.Len(t, events, 1)
	assert.Equal(t, ChangeNewIpo, events[0].Kind)
	assert.Equal(t, "Beta Bank", events[0].Details["company"])
	assert.Equal(t, "BBL", events[0].Details["symbol"])
	assert.Equal(t, "Open", events[0].Details["status"])
}

func TestObserveIposIgnoresRemovals(t *testing.T) {
	d := NewChangeDetector()

	d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Symbol: "AHL"},
		{Symbol: "BBL"},
	})

	events := d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Symbol: "AHL"},
	})
	assert.Empty(t, events)

	// BBL left the snapshot, so coming back counts as new again
	events = d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{
		{Symbol: "AHL"},
		{Symbol: "BBL"},
	})
	require.Len(t, events, 1)
	assert.Equal(t, "BBL", events[0].Details["symbol"])
}

func TestObserveIposDomainsAreIndependent(t *testing.T) {
	d := NewChangeDetector()

	d.ObserveIpos(DomainOngoingIpos, []models.IpoEntry{{Symbol: "AHL"}})

	// First observation of the upcoming feed is still a cold start
	events := d.ObserveIpos(DomainUpcomingIpos, []models.IpoEntry{{Symbol: "AHL"}})
	assert.Empty(t, events)
}

func TestObserveIposFallsBackToNameIdentity(t *testing.T) {
	d := NewChangeDetector()

	d.ObserveIpos(DomainUpcomingIpos, nil)

	events := d.ObserveIpos(DomainUpcomingIpos, []models.IpoEntry{
		{Name: "Gamma Insurance"},
		{}, // no identity at all, must not emit
	})
	require.Len(t, events, 1)
	assert.Equal(t, "Gamma Insurance", events[0].Details["company"])
}
