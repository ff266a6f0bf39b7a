package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/services"
)

// Jobs bundles the services the scheduled job bodies act on. Realtime may
// be nil when the WebSocket stream is disabled.
type Jobs struct {
	Cache        *services.CacheService
	Alerts       *services.PriceAlertService
	MarketStatus *services.MarketStatusService
	Ipos         *services.IpoService
	Realtime     *services.RealtimeTickerService
}

type feed struct {
	key string
	url string
}

// fetchGroup refreshes several feeds concurrently through the cache layer.
// All fetches are awaited; any failure fails the group but the successful
// feeds are still cached.
func (j *Jobs) fetchGroup(ctx context.Context, feeds []feed) (map[string]json.RawMessage, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]json.RawMessage, len(feeds))
	var errs []error

	for _, f := range feeds {
		wg.Add(1)
		go func(f feed) {
			defer wg.Done()
			payload, err := j.Cache.GetOrFetch(ctx, f.key, f.url, config.CacheTTL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.key, err))
				return
			}
			results[f.key] = payload
		}(f)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// FetchIpoData refreshes the ongoing and upcoming IPO feeds
func (j *Jobs) FetchIpoData(ctx context.Context) error {
	log.Println("Fetching IPO data...")
	_, err := j.fetchGroup(ctx, []feed{
		{config.CacheKeyOngoingIpos, config.SourceOngoingIpos},
		{config.CacheKeyUpcomingIpos, config.SourceUpcomingIpos},
	})
	if err != nil {
		return err
	}
	log.Println("IPO data fetched and cached")
	return nil
}

// FetchMarketData refreshes the market feeds and pushes the fresh ticker
// snapshot into the realtime stream.
func (j *Jobs) FetchMarketData(ctx context.Context) error {
	log.Println("Fetching market data...")
	results, err := j.fetchGroup(ctx, []feed{
		{config.CacheKeyTickers, config.SourceTickers},
		{config.CacheKeyNews, config.SourceNews},
		{config.CacheKeyIndices1D, config.IndicesBaseURL + "/1d"},
		{config.CacheKeySectorPerformance, config.SourceSectorPerformance},
		{config.CacheKeyMarketStatus, config.SourceMarketStatus},
	})

	if tickers, ok := results[config.CacheKeyTickers]; ok && j.Realtime != nil {
		j.Realtime.BroadcastTickers(tickers)
	}
	if err != nil {
		return err
	}
	log.Println("Market data fetched and cached")
	return nil
}

// FetchNews refreshes the share-market news feed
func (j *Jobs) FetchNews(ctx context.Context) error {
	log.Println("Fetching news...")
	_, err := j.Cache.GetOrFetch(ctx, config.CacheKeyNews, config.SourceNews, config.CacheTTL)
	return err
}

// CheckPriceAlerts evaluates the user price alerts
func (j *Jobs) CheckPriceAlerts(ctx context.Context) error {
	log.Println("Checking price alerts...")
	return j.Alerts.CheckAlerts(ctx)
}

// CheckMarketStatus runs market open/close change detection
func (j *Jobs) CheckMarketStatus(ctx context.Context) error {
	log.Println("Checking market status...")
	return j.MarketStatus.CheckMarketStatus(ctx)
}

// CheckIpoUpdates runs IPO change detection over both feeds
func (j *Jobs) CheckIpoUpdates(ctx context.Context) error {
	log.Println("Checking IPO updates...")
	return j.Ipos.CheckIpoUpdates(ctx)
}

// ResetDailyFlag re-arms the once-per-day market-opened notification
func (j *Jobs) ResetDailyFlag(ctx context.Context) error {
	j.MarketStatus.ResetDailyFlag()
	return nil
}
