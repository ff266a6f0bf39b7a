package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CacheEntry is one cached upstream payload. The payload is an opaque
// wholesale snapshot, replaced in full on every refresh.
type CacheEntry struct {
	Key       string          `bson:"_id" json:"key"`
	Payload   json.RawMessage `bson:"payload" json:"payload"`
	FetchedAt time.Time       `bson:"fetched_at" json:"fetched_at"`
}

// TickerQuote is one row of the live-trading feed
type TickerQuote struct {
	Ticker        string          `json:"ticker"`
	TickerName    string          `json:"ticker_name"`
	LTP           decimal.Decimal `json:"ltp"`
	PointChange   decimal.Decimal `json:"point_change"`
	PercentChange decimal.Decimal `json:"percentage_change"`
}

// IpoEntry is one IPO listing. The two IPO feeds disagree on field names,
// so both spellings are accepted.
type IpoEntry struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

func (e *IpoEntry) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name        string `json:"name"`
		CompanyName string `json:"companyName"`
		Symbol      string `json:"symbol"`
		StockSymbol string `json:"stockSymbol"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Name = aux.Name
	if e.Name == "" {
		e.Name = aux.CompanyName
	}
	e.Symbol = aux.Symbol
	if e.Symbol == "" {
		e.Symbol = aux.StockSymbol
	}
	e.Status = aux.Status
	return nil
}

// Identity returns the key used to tell IPO entries apart across snapshots
func (e IpoEntry) Identity() string {
	if e.Symbol != "" {
		return e.Symbol
	}
	return e.Name
}

// ExtractTickers unpacks the live-trading feed. The feed has shipped both as
// a bare array and wrapped in a "response" envelope.
func ExtractTickers(raw json.RawMessage) ([]TickerQuote, error) {
	var wrapped struct {
		Response []TickerQuote `json:"response"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Response != nil {
		return wrapped.Response, nil
	}

	var bare []TickerQuote
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("unexpected tickers payload: %w", err)
	}
	return bare, nil
}

// ExtractMarketLive unpacks response[0].market_live from the market-status feed
func ExtractMarketLive(raw json.RawMessage) (bool, error) {
	var wrapped struct {
		Response []struct {
			MarketLive *bool `json:"market_live"`
		} `json:"response"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return false, fmt.Errorf("unexpected market status payload: %w", err)
	}
	if len(wrapped.Response) == 0 || wrapped.Response[0].MarketLive == nil {
		return false, fmt.Errorf("market status not found in response")
	}
	return *wrapped.Response[0].MarketLive, nil
}

// ExtractIpoEntries unpacks an IPO feed. Tries the nepalipaisa envelope
// (data.content), then the onlinekhabar envelope (response), then a bare array.
func ExtractIpoEntries(raw json.RawMessage) ([]IpoEntry, error) {
	var paisa struct {
		Data struct {
			Content []IpoEntry `json:"content"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &paisa); err == nil && paisa.Data.Content != nil {
		return paisa.Data.Content, nil
	}

	var khabar struct {
		Response []IpoEntry `json:"response"`
	}
	if err := json.Unmarshal(raw, &khabar); err == nil && khabar.Response != nil {
		return khabar.Response, nil
	}

	var bare []IpoEntry
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("unexpected IPO payload: %w", err)
	}
	return bare, nil
}

// ExtractNews unpacks data.news from the share-market news feed
func ExtractNews(raw json.RawMessage) (json.RawMessage, error) {
	var wrapped struct {
		Data struct {
			News json.RawMessage `json:"news"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected news payload: %w", err)
	}
	if wrapped.Data.News == nil {
		return nil, fmt.Errorf("news not found in response")
	}
	return wrapped.Data.News, nil
}
