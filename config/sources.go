package config

import "time"

// Upstream market data feeds. Payload shapes are source specific; each
// consumer unpacks only the fields it knows about.
const (
	SourceOngoingIpos       = "https://www.nepalipaisa.com/api/GetIpos?stockSymbol=&pageNo=1&itemsPerPage=10&pagePerDisplay=5"
	SourceUpcomingIpos      = "https://www.onlinekhabar.com/smtm/home/ipo-corner-upcoming"
	SourceTickers           = "https://www.onlinekhabar.com/smtm/stock_live/live-trading"
	SourceNews              = "https://www.onlinekhabar.com/wp-json/okapi/v1/category-posts?category=share-market"
	SourceSectorPerformance = "https://www.onlinekhabar.com/smtm/stock_live/sector-performance"
	SourceMarketStatus      = "https://www.onlinekhabar.com/smtm/home/market-status"
	SourceTrendingStocks    = "https://www.onlinekhabar.com/smtm/home/trending"

	IndicesBaseURL    = "https://www.onlinekhabar.com/smtm/home/indices-data/nepse"
	TickerPageBaseURL = "https://www.onlinekhabar.com/smtm/ticker-page"
)

// Cache keys for the scheduled feeds
const (
	CacheKeyOngoingIpos       = "ongoing-ipos"
	CacheKeyUpcomingIpos      = "upcoming-ipos"
	CacheKeyTickers           = "tickers"
	CacheKeyNews              = "news"
	CacheKeyIndices1D         = "indices-1d"
	CacheKeySectorPerformance = "sector-performance"
	CacheKeyMarketStatus      = "market-status"
	CacheKeyTrendingStocks    = "trending-stocks"
)

// CacheTTL is the staleness window for every cached feed (5 minutes)
const CacheTTL = 5 * time.Minute
