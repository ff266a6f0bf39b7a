// Package expo is a minimal client for the Expo push notification HTTP API
// (https://exp.host/--/api/v2/push/send). It covers what the dispatcher
// needs: token format validation, provider-sized chunking and per-message
// delivery tickets.
package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Expo push send endpoint
	DefaultBaseURL = "https://exp.host/--/api/v2/push/send"

	// MaxChunkSize is the maximum number of messages Expo accepts per call.
	// This is a provider constraint, not a business rule.
	MaxChunkSize = 100
)

// Ticket error codes reported in details.error
const (
	ErrorDeviceNotRegistered = "DeviceNotRegistered"
	ErrorMessageTooBig       = "MessageTooBig"
	ErrorMessageRateExceeded = "MessageRateExceeded"
)

// Message is one push notification addressed to a single token
type Message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound string            `json:"sound,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Ticket is the per-message delivery outcome returned by Expo
type Ticket struct {
	Status  string         `json:"status"` // "ok" or "error"
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details *TicketDetails `json:"details,omitempty"`
}

// TicketDetails carries the machine-readable error reason
type TicketDetails struct {
	Error string `json:"error,omitempty"`
}

// OK reports whether the message was accepted for delivery
func (t Ticket) OK() bool {
	return t.Status == "ok"
}

// PermanentFailure reports whether the destination will never be reachable
// again (device uninstalled or unregistered).
func (t Ticket) PermanentFailure() bool {
	return t.Details != nil && t.Details.Error == ErrorDeviceNotRegistered
}

// IsExpoPushToken checks the syntactic token format Expo issues to devices
func IsExpoPushToken(token string) bool {
	if strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[") {
		return strings.HasSuffix(token, "]")
	}
	return false
}

// Chunk splits messages into provider-sized batches
func Chunk(messages []Message, size int) [][]Message {
	if size <= 0 {
		size = MaxChunkSize
	}
	var chunks [][]Message
	for len(messages) > 0 {
		n := size
		if len(messages) < n {
			n = len(messages)
		}
		chunks = append(chunks, messages[:n])
		messages = messages[n:]
	}
	return chunks
}

// Client talks to the Expo push gateway
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client with the given request timeout
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    DefaultBaseURL,
	}
}

// SendChunk sends one batch of messages and returns a ticket per message in
// order. The chunk must not exceed MaxChunkSize.
func (c *Client) SendChunk(ctx context.Context, messages []Message) ([]Ticket, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) > MaxChunkSize {
		return nil, fmt.Errorf("chunk of %d exceeds provider limit %d", len(messages), MaxChunkSize)
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send push chunk: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read push response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("push gateway status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed struct {
		Data []Ticket `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse push response: %w", err)
	}
	if len(parsed.Data) != len(messages) {
		return nil, fmt.Errorf("push gateway returned %d tickets for %d messages", len(parsed.Data), len(messages))
	}
	return parsed.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
