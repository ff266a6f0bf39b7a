package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/models"
)

// IpoService watches the ongoing and upcoming IPO feeds and notifies all
// subscribers about listings that were not present in the previous
// snapshot. Entries disappearing from a feed are not notified.
type IpoService struct {
	fetcher  JSONFetcher
	detector *ChangeDetector
	notifier Broadcaster
}

// NewIpoService wires the fetcher, detector and broadcaster
func NewIpoService(fetcher JSONFetcher, detector *ChangeDetector, notifier Broadcaster) *IpoService {
	return &IpoService{
		fetcher:  fetcher,
		detector: detector,
		notifier: notifier,
	}
}

// CheckIpoUpdates runs change detection over both IPO feeds. Each feed is
// checked independently; the job fails only with the combined errors.
func (s *IpoService) CheckIpoUpdates(ctx context.Context) error {
	return errors.Join(
		s.checkFeed(ctx, DomainOngoingIpos, config.SourceOngoingIpos,
			"IPO Open for Application",
			"Have you applied? There is an IPO open: %s"),
		s.checkFeed(ctx, DomainUpcomingIpos, config.SourceUpcomingIpos,
			"Upcoming IPO Announced",
			"A new IPO is on the way: %s"),
	)
}

func (s *IpoService) checkFeed(ctx context.Context, domain, url, title, bodyFormat string) error {
	payload, err := s.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", domain, err)
	}

	entries, err := models.ExtractIpoEntries(payload)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", domain, err)
	}

	events := s.detector.ObserveIpos(domain, entries)
	log.Printf("Checked %s: %d entries, %d new", domain, len(entries), len(events))

	for _, event := range events {
		company := event.Details["company"]
		if company == "" {
			company = event.Details["symbol"]
		}
		data := map[string]string{
			"type":    "new_ipo",
			"domain":  event.Domain,
			"company": event.Details["company"],
			"symbol":  event.Details["symbol"],
		}
		if _, err := s.notifier.Broadcast(ctx, title, fmt.Sprintf(bodyFormat, company), data); err != nil {
			log.Printf("Failed to broadcast %s notification for %s: %v", domain, company, err)
		}
	}
	return nil
}
