package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket configuration
const (
	MaxWebSocketClients   = 100
	webSocketWriteTimeout = 10 * time.Second
	webSocketPongTimeout  = 60 * time.Second
	webSocketPingInterval = 30 * time.Second
)

// tickerStreamMessage is the frame broadcast to connected clients
type tickerStreamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Time string          `json:"time"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// RealtimeTickerService streams the cached live-trading snapshot to
// WebSocket clients. It holds no data of its own: the scheduled market data
// job pushes each fresh snapshot into the hub after refreshing the cache.
type RealtimeTickerService struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	stop       chan struct{}
	upgrader   websocket.Upgrader

	mu           sync.RWMutex
	lastSnapshot []byte
}

// NewRealtimeTickerService creates the hub. Call Run in a goroutine.
func NewRealtimeTickerService() *RealtimeTickerService {
	return &RealtimeTickerService{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run is the hub loop. Blocks until Stop is called.
func (s *RealtimeTickerService) Run() {
	for {
		select {
		case client := <-s.register:
			if len(s.clients) >= MaxWebSocketClients {
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				continue
			}
			s.clients[client] = true
			log.Printf("WebSocket client connected (%d total)", len(s.clients))

			// Replay the last snapshot so a new client is not empty until
			// the next refresh
			s.mu.RLock()
			snapshot := s.lastSnapshot
			s.mu.RUnlock()
			if snapshot != nil {
				select {
				case client.send <- snapshot:
				default:
				}
			}

		case client := <-s.unregister:
			if s.clients[client] {
				delete(s.clients, client)
				close(client.send)
				log.Printf("WebSocket client disconnected (%d total)", len(s.clients))
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop it
					delete(s.clients, client)
					close(client.send)
				}
			}

		case <-s.stop:
			for client := range s.clients {
				client.conn.Close()
				delete(s.clients, client)
			}
			return
		}
	}
}

// Stop shuts the hub down and closes all client connections
func (s *RealtimeTickerService) Stop() {
	close(s.stop)
}

// BroadcastTickers pushes a fresh live-trading snapshot to all clients
func (s *RealtimeTickerService) BroadcastTickers(payload json.RawMessage) {
	frame, err := json.Marshal(tickerStreamMessage{
		Type: "tickers",
		Data: payload,
		Time: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Failed to marshal ticker frame: %v", err)
		return
	}

	s.mu.Lock()
	s.lastSnapshot = frame
	s.mu.Unlock()

	select {
	case s.broadcast <- frame:
	default:
		log.Println("Ticker broadcast channel full, dropping frame")
	}
}

// HandleWebSocket upgrades an HTTP request and attaches it to the hub
func (s *RealtimeTickerService) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	s.register <- client

	go s.writePump(client)
	go s.readPump(client)
}

func (s *RealtimeTickerService) writePump(c *wsClient) {
	ticker := time.NewTicker(webSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(webSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(webSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *RealtimeTickerService) readPump(c *wsClient) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(webSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(webSocketPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}
