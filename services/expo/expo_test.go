package expo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpoPushToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"ExpoPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"ExponentPushToken[unclosed", false},
		{"FCMToken[xxxx]", false},
		{"", false},
		{"random-string", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsExpoPushToken(tc.token), tc.token)
	}
}

func TestChunk(t *testing.T) {
	messages := make([]Message, 250)

	chunks := Chunk(messages, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)

	assert.Nil(t, Chunk(nil, 100))

	// Non-positive size falls back to the provider limit
	chunks = Chunk(messages, 0)
	require.Len(t, chunks, 3)
}

func TestSendChunkParsesTickets(t *testing.T) {
	var received []Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"status":"ok","id":"t1"},
			{"status":"error","message":"gone","details":{"error":"DeviceNotRegistered"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	client.baseURL = server.URL

	tickets, err := client.SendChunk(context.Background(), []Message{
		{To: "ExponentPushToken[a]", Title: "t", Body: "b"},
		{To: "ExponentPushToken[b]", Title: "t", Body: "b"},
	})
	require.NoError(t, err)
	require.Len(t, received, 2)
	assert.Equal(t, "ExponentPushToken[a]", received[0].To)

	require.Len(t, tickets, 2)
	assert.True(t, tickets[0].OK())
	assert.False(t, tickets[0].PermanentFailure())
	assert.False(t, tickets[1].OK())
	assert.True(t, tickets[1].PermanentFailure())
}

func TestSendChunkRejectsTicketCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"status":"ok"}]}`))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	client.baseURL = server.URL

	_, err := client.SendChunk(context.Background(), []Message{
		{To: "ExponentPushToken[a]"},
		{To: "ExponentPushToken[b]"},
	})
	assert.Error(t, err)
}

func TestSendChunkRejectsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	client.baseURL = server.URL

	_, err := client.SendChunk(context.Background(), []Message{{To: "ExponentPushToken[a]"}})
	assert.Error(t, err)
}

func TestSendChunkEmptyIsANoop(t *testing.T) {
	client := NewClient(5 * time.Second)
	client.baseURL = "http://127.0.0.1:1" // would fail if contacted

	tickets, err := client.SendChunk(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, tickets)
}

func TestSendChunkRejectsOversizedChunk(t *testing.T) {
	client := NewClient(5 * time.Second)
	_, err := client.SendChunk(context.Background(), make([]Message, MaxChunkSize+1))
	assert.Error(t, err)
}
