package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Ash-333/nepse-data/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broadcastCall struct {
	title string
	data  map[string]string
}

type fakeBroadcaster struct {
	calls []broadcastCall
	err   error
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, title, body string, data map[string]string) (DispatchReport, error) {
	b.calls = append(b.calls, broadcastCall{title: title, data: data})
	if b.err != nil {
		return DispatchReport{}, b.err
	}
	return DispatchReport{Attempted: 1, Delivered: 1}, nil
}

const (
	marketClosedPayload = `{"response":[{"market_live":false}]}`
	marketOpenPayload   = `{"response":[{"market_live":true}]}`
)

func newMarketStatusFixture(clock Clock) (*MarketStatusService, *fakeFetcher, *fakeBroadcaster) {
	fetcher := newFakeFetcher()
	broadcaster := &fakeBroadcaster{}
	svc := NewMarketStatusService(fetcher, NewChangeDetector(), broadcaster, clock, kathmandu)
	return svc, fetcher, broadcaster
}

func TestCheckMarketStatusNotifiesOnceOnOpenFlip(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2024, 6, 9, 11, 0, 0, 0, kathmandu)}
	svc, fetcher, broadcaster := newMarketStatusFixture(clock)

	// Cold start: the closed status is recorded without noise
	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketClosedPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	assert.Empty(t, broadcaster.calls)

	// Flip to open: exactly one broadcast
	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketOpenPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	require.Len(t, broadcaster.calls, 1)
	assert.Equal(t, "Market is Now Open!", broadcaster.calls[0].title)
	assert.Equal(t, "market_opened", broadcaster.calls[0].data["type"])
	assert.Equal(t, "Sunday", broadcaster.calls[0].data["day"])

	// Open again: no change, no repeat
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	assert.Len(t, broadcaster.calls, 1)
}

func TestCheckMarketStatusDailyFlagSuppressesSecondOpen(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2024, 6, 9, 11, 0, 0, 0, kathmandu)}
	svc, fetcher, broadcaster := newMarketStatusFixture(clock)

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketClosedPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketOpenPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	require.Len(t, broadcaster.calls, 1)

	// A second open flip on the same day (feed glitch) stays silent
	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketClosedPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketOpenPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	assert.Len(t, broadcaster.calls, 1)

	// After the midnight reset the next open flip notifies again
	svc.ResetDailyFlag()
	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketClosedPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketOpenPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	assert.Len(t, broadcaster.calls, 2)
}

func TestMarketOpenFlipReachesEveryDevice(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2024, 6, 9, 11, 0, 0, 0, kathmandu)}
	fetcher := newFakeFetcher()
	store := newFakeTokenStore(tokenA, tokenB, tokenC)
	sender := &fakeSender{}
	notifier := NewNotificationService(sender, store)
	svc := NewMarketStatusService(fetcher, NewChangeDetector(), notifier, clock, kathmandu)

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketClosedPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	assert.Empty(t, sender.chunks)

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketOpenPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))

	// One chunk carrying one message per registered device
	require.Len(t, sender.chunks, 1)
	assert.Len(t, sender.chunks[0], 3)
	assert.Equal(t, "Market is Now Open!", sender.chunks[0][0].Title)
}

func TestCheckMarketStatusCloseFlipStaysSilent(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2024, 6, 9, 15, 0, 0, 0, kathmandu)}
	svc, fetcher, broadcaster := newMarketStatusFixture(clock)

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketOpenPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(marketClosedPayload)
	require.NoError(t, svc.CheckMarketStatus(context.Background()))
	assert.Empty(t, broadcaster.calls)
}

func TestCheckMarketStatusPropagatesFetchErrors(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2024, 6, 9, 11, 0, 0, 0, kathmandu)}
	svc, fetcher, broadcaster := newMarketStatusFixture(clock)

	fetcher.errs[config.SourceMarketStatus] = fmt.Errorf("feed down")
	assert.Error(t, svc.CheckMarketStatus(context.Background()))
	assert.Empty(t, broadcaster.calls)
}

func TestCheckMarketStatusRejectsMalformedPayload(t *testing.T) {
	clock := &FixedClock{Current: time.Date(2024, 6, 9, 11, 0, 0, 0, kathmandu)}
	svc, fetcher, _ := newMarketStatusFixture(clock)

	fetcher.payloads[config.SourceMarketStatus] = json.RawMessage(`{"response":[]}`)
	assert.Error(t, svc.CheckMarketStatus(context.Background()))
}
