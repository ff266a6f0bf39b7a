package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/models"
)

// Broadcaster delivers a notification to every registered device
type Broadcaster interface {
	Broadcast(ctx context.Context, title, body string, data map[string]string) (DispatchReport, error)
}

// MarketStatusService watches the market-status feed and notifies all
// subscribers once per day when the exchange transitions to open. The feed
// is fetched directly (not through the TTL cache) so a transition is seen
// as soon as the job runs.
type MarketStatusService struct {
	fetcher  JSONFetcher
	detector *ChangeDetector
	notifier Broadcaster
	clock    Clock
	location *time.Location

	mu            sync.Mutex
	openedNotified bool
}

// NewMarketStatusService wires the fetcher, detector and broadcaster
func NewMarketStatusService(fetcher JSONFetcher, detector *ChangeDetector, notifier Broadcaster, clock Clock, loc *time.Location) *MarketStatusService {
	return &MarketStatusService{
		fetcher:  fetcher,
		detector: detector,
		notifier: notifier,
		clock:    clock,
		location: loc,
	}
}

// CheckMarketStatus fetches the current status, runs change detection and
// broadcasts the market-opened notification on a closed-to-open flip.
func (s *MarketStatusService) CheckMarketStatus(ctx context.Context) error {
	payload, err := s.fetcher.FetchJSON(ctx, config.SourceMarketStatus)
	if err != nil {
		return fmt.Errorf("fetch market status: %w", err)
	}

	live, err := models.ExtractMarketLive(payload)
	if err != nil {
		return fmt.Errorf("unpack market status: %w", err)
	}

	event := s.detector.ObserveMarketStatus(live)
	if event == nil {
		if live {
			log.Println("Market is open (no change)")
		} else {
			log.Println("Market is closed")
		}
		return nil
	}

	if event.Kind != ChangeMarketOpened {
		log.Println("Market just closed")
		return nil
	}

	s.mu.Lock()
	alreadySent := s.openedNotified
	s.openedNotified = true
	s.mu.Unlock()

	if alreadySent {
		log.Println("Market opened notification already sent today")
		return nil
	}

	now := s.clock.Now().In(s.location)
	log.Println("Market just opened, notifying all subscribers")
	_, err = s.notifier.Broadcast(ctx,
		"Market is Now Open!",
		"Nepal Stock Exchange is now live for trading!",
		map[string]string{
			"type":      "market_opened",
			"timestamp": now.Format(time.RFC3339),
			"day":       now.Weekday().String(),
		})
	if err != nil {
		return fmt.Errorf("broadcast market opened: %w", err)
	}
	return nil
}

// ResetDailyFlag re-arms the once-per-day market-opened notification.
// Fired by the midnight trigger.
func (s *MarketStatusService) ResetDailyFlag() {
	s.mu.Lock()
	s.openedNotified = false
	s.mu.Unlock()
	log.Println("Daily market notification flag reset")
}
