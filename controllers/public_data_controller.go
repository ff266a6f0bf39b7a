package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/models"
	"github.com/Ash-333/nepse-data/services"
	"github.com/gin-gonic/gin"
)

// PublicDataController serves the cached market data feeds. Requests share
// the same cache as the scheduled jobs; when an upstream fetch fails, an
// existing cached value is served stale instead of erroring.
type PublicDataController struct {
	cache *services.CacheService
}

// NewPublicDataController creates the controller
func NewPublicDataController(cache *services.CacheService) *PublicDataController {
	return &PublicDataController{cache: cache}
}

// fetchOrStale resolves a feed through the cache, falling back to a stale
// entry when the upstream is down. Returns (nil, false) after writing the
// error response.
func (pc *PublicDataController) fetchOrStale(c *gin.Context, key, url string) (json.RawMessage, bool) {
	payload, err := pc.cache.GetOrFetch(c.Request.Context(), key, url, config.CacheTTL)
	if err == nil {
		return payload, true
	}

	stale, staleErr := pc.cache.GetCached(c.Request.Context(), key, 0)
	if staleErr == nil {
		log.Printf("Serving stale %s after fetch failure: %v", key, err)
		return stale, true
	}
	if !errors.Is(staleErr, services.ErrCacheMiss) {
		log.Printf("Stale read of %s failed: %v", key, staleErr)
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   err.Error(),
	})
	return nil, false
}

// GetOngoingIpos returns the ongoing IPO listings
func (pc *PublicDataController) GetOngoingIpos(c *gin.Context) {
	payload, ok := pc.fetchOrStale(c, config.CacheKeyOngoingIpos, config.SourceOngoingIpos)
	if !ok {
		return
	}
	entries, err := models.ExtractIpoEntries(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "type": "ongoing", "data": entries})
}

// GetUpcomingIpos returns the upcoming IPO listings
func (pc *PublicDataController) GetUpcomingIpos(c *gin.Context) {
	payload, ok := pc.fetchOrStale(c, config.CacheKeyUpcomingIpos, config.SourceUpcomingIpos)
	if !ok {
		return
	}
	entries, err := models.ExtractIpoEntries(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "type": "upcoming", "data": entries})
}

// GetTickers returns the live-trading snapshot
func (pc *PublicDataController) GetTickers(c *gin.Context) {
	payload, ok := pc.fetchOrStale(c, config.CacheKeyTickers, config.SourceTickers)
	if !ok {
		return
	}
	quotes, err := models.ExtractTickers(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "type": "tickers", "data": quotes})
}

// GetNews returns the share-market news list
func (pc *PublicDataController) GetNews(c *gin.Context) {
	payload, ok := pc.fetchOrStale(c, config.CacheKeyNews, config.SourceNews)
	if !ok {
		return
	}
	news, err := models.ExtractNews(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "type": "news", "data": news})
}

// GetIndices returns the 1-day NEPSE index data
func (pc *PublicDataController) GetIndices(c *gin.Context) {
	pc.rawFeed(c, "indices", config.CacheKeyIndices1D, config.IndicesBaseURL+"/1d")
}

// GetSectorPerformance returns the sector performance feed
func (pc *PublicDataController) GetSectorPerformance(c *gin.Context) {
	pc.rawFeed(c, "sector-performance", config.CacheKeySectorPerformance, config.SourceSectorPerformance)
}

// GetMarketStatus returns the market open/close feed
func (pc *PublicDataController) GetMarketStatus(c *gin.Context) {
	pc.rawFeed(c, "market-status", config.CacheKeyMarketStatus, config.SourceMarketStatus)
}

// GetTrendingStocks returns the trending stocks feed
func (pc *PublicDataController) GetTrendingStocks(c *gin.Context) {
	pc.rawFeed(c, "trending", config.CacheKeyTrendingStocks, config.SourceTrendingStocks)
}

func (pc *PublicDataController) rawFeed(c *gin.Context, feedType, key, url string) {
	payload, ok := pc.fetchOrStale(c, key, url)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "type": feedType, "data": payload})
}

// GetCombined returns ongoing IPOs, upcoming IPOs and tickers in one
// response, fetched concurrently.
func (pc *PublicDataController) GetCombined(c *gin.Context) {
	type result struct {
		key     string
		payload json.RawMessage
		err     error
	}

	feeds := []struct{ key, url string }{
		{config.CacheKeyOngoingIpos, config.SourceOngoingIpos},
		{config.CacheKeyUpcomingIpos, config.SourceUpcomingIpos},
		{config.CacheKeyTickers, config.SourceTickers},
	}

	var wg sync.WaitGroup
	results := make([]result, len(feeds))
	for i, f := range feeds {
		wg.Add(1)
		go func(i int, key, url string) {
			defer wg.Done()
			payload, err := pc.cache.GetOrFetch(c.Request.Context(), key, url, config.CacheTTL)
			results[i] = result{key: key, payload: payload, err: err}
		}(i, f.key, f.url)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": r.err.Error()})
			return
		}
	}

	ongoing, _ := models.ExtractIpoEntries(results[0].payload)
	upcoming, _ := models.ExtractIpoEntries(results[1].payload)
	tickers, _ := models.ExtractTickers(results[2].payload)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"ongoing":  ongoing,
		"upcoming": upcoming,
		"tickers":  tickers,
	})
}

// GetTicker aggregates the five per-ticker sub-feeds into one response,
// fetched concurrently through the cache.
func (pc *PublicDataController) GetTicker(c *gin.Context) {
	ticker := strings.ToUpper(c.Param("ticker"))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ticker is required"})
		return
	}

	sections := []struct{ name, path string }{
		{"info", "ticker-info"},
		{"marketRange", "market-range"},
		{"stats", "ticker-stats"},
		{"quickView", "ticker-quick-view"},
		{"technicalIndicator", "ticker-technical-indicator"},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := gin.H{"ticker": ticker}
	var firstErr error

	for _, s := range sections {
		wg.Add(1)
		go func(name, path string) {
			defer wg.Done()
			key := fmt.Sprintf("%s-%s", path, ticker)
			url := fmt.Sprintf("%s/%s/%s", config.TickerPageBaseURL, path, ticker)
			payload, err := pc.cache.GetOrFetch(c.Request.Context(), key, url, config.CacheTTL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			merged[name] = payload
		}(s.name, s.path)
	}
	wg.Wait()

	if firstErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": firstErr.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": merged})
}
