package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertStore is the persistent price-alert store consumed by the evaluator
type AlertStore interface {
	ListUntriggered(ctx context.Context) ([]models.PriceAlert, error)
	MarkTriggered(ctx context.Context, id uint, triggeredAt time.Time, retire bool) error
}

// UserNotifier delivers a notification to one user's devices
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID uint, title, body string, data map[string]string) (DispatchReport, error)
}

// PriceAlertService evaluates user price alerts against the freshest cached
// ticker snapshot. It never fetches: it reuses whatever the scheduled market
// data job last stored, however old that is.
type PriceAlertService struct {
	alerts   AlertStore
	cache    *CacheService
	notifier UserNotifier
	clock    Clock

	// Minimum interval between re-fires of a recurring alert while its
	// condition keeps holding. Zero re-fires every evaluation cycle.
	cooldown time.Duration
}

// NewPriceAlertService wires the alert store, the cache, and the notifier
func NewPriceAlertService(alerts AlertStore, cache *CacheService, notifier UserNotifier, clock Clock, cooldown time.Duration) *PriceAlertService {
	return &PriceAlertService{
		alerts:   alerts,
		cache:    cache,
		notifier: notifier,
		clock:    clock,
		cooldown: cooldown,
	}
}

// CheckAlerts evaluates every untriggered alert. A ticker absent from the
// current price list is skipped without error.
func (s *PriceAlertService) CheckAlerts(ctx context.Context) error {
	payload, err := s.cache.GetCached(ctx, config.CacheKeyTickers, 0)
	if errors.Is(err, ErrCacheMiss) {
		log.Println("No ticker data cached yet, skipping price alert check")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ticker cache: %w", err)
	}

	quotes, err := models.ExtractTickers(payload)
	if err != nil {
		return fmt.Errorf("unpack tickers: %w", err)
	}
	prices := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		prices[q.Ticker] = q.LTP
	}

	alerts, err := s.alerts.ListUntriggered(ctx)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	log.Printf("Checking %d active price alerts", len(alerts))

	now := s.clock.Now()
	triggered := 0

	for _, alert := range alerts {
		price, ok := prices[alert.Ticker]
		if !ok {
			continue
		}
		if !s.shouldTrigger(alert, price, now) {
			continue
		}

		retire := alert.Mode == models.AlertModeOneTime
		if err := s.alerts.MarkTriggered(ctx, alert.ID, now, retire); err != nil {
			log.Printf("Failed to mark alert %d triggered: %v", alert.ID, err)
			continue
		}
		triggered++

		title := fmt.Sprintf("Price Alert: %s", alert.Ticker)
		body := fmt.Sprintf("%s is now %s your target price of %s. Current price: %s",
			alert.Ticker, alert.Condition, alert.TargetPrice.String(), price.String())
		if _, err := s.notifier.NotifyUser(ctx, alert.UserID, title, body, map[string]string{
			"type":         "price_alert",
			"ticker":       alert.Ticker,
			"target_price": alert.TargetPrice.String(),
			"current_price": price.String(),
			"condition":    alert.Condition,
		}); err != nil {
			log.Printf("Failed to notify user %d for alert %d: %v", alert.UserID, alert.ID, err)
		}
	}

	if triggered > 0 {
		log.Printf("Triggered %d price alerts", triggered)
	}
	return nil
}

// shouldTrigger applies the threshold (boundary inclusive on both sides)
// and the recurring re-arm cooldown.
func (s *PriceAlertService) shouldTrigger(alert models.PriceAlert, price decimal.Decimal, now time.Time) bool {
	var crossed bool
	switch alert.Condition {
	case models.AlertConditionAbove:
		crossed = price.GreaterThanOrEqual(alert.TargetPrice)
	case models.AlertConditionBelow:
		crossed = price.LessThanOrEqual(alert.TargetPrice)
	default:
		return false
	}
	if !crossed {
		return false
	}
	if alert.Mode == models.AlertModeRecurring && s.cooldown > 0 && alert.LastTriggeredAt != nil {
		if now.Sub(*alert.LastTriggeredAt) < s.cooldown {
			return false
		}
	}
	return true
}

// GormAlertStore persists price alerts in Postgres
type GormAlertStore struct {
	db *gorm.DB
}

// NewGormAlertStore creates an alert store on the given database
func NewGormAlertStore(db *gorm.DB) *GormAlertStore {
	return &GormAlertStore{db: db}
}

// ListUntriggered returns alerts still eligible for evaluation
func (s *GormAlertStore) ListUntriggered(ctx context.Context) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := s.db.WithContext(ctx).
		Where("triggered = ?", false).
		Find(&alerts).Error
	return alerts, err
}

// MarkTriggered records a firing. retire permanently disables the alert
// (one-time mode); otherwise only the firing time is recorded.
func (s *GormAlertStore) MarkTriggered(ctx context.Context, id uint, triggeredAt time.Time, retire bool) error {
	updates := map[string]interface{}{
		"last_triggered_at": triggeredAt,
	}
	if retire {
		updates["triggered"] = true
	}
	return s.db.WithContext(ctx).
		Model(&models.PriceAlert{}).
		Where("id = ?", id).
		Updates(updates).Error
}
