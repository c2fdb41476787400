package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// tempo máximo de uma escrita; cliente que não lê é desconectado
const defaultWriteWait = 5 * time.Second

// client serializa as escritas: gorilla não aceita writers concorrentes
type client struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	writeWait time.Duration
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteJSON(v)
}

// Hub gerencia conexões WebSocket e assinaturas por mercado
type Hub struct {
	upgrader  websocket.Upgrader
	writeWait time.Duration
	mu        sync.RWMutex
	// marketID -> set de clientes
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader:  websocket.Upgrader{CheckOrigin: allowOrigin},
		writeWait: defaultWriteWait,
		subs:      make(map[string]map[*client]struct{}),
	}
}

// HandleWS atende uma conexão até o cliente desconectar.
// Um cliente pode assinar vários mercados.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn, writeWait: h.writeWait}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.MarketID != "" {
				h.subscribe(msg.MarketID, c)
			}
		case "unsubscribe":
			h.unsubscribe(msg.MarketID, c)
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}

	h.drop(c)
}

// drop remove o cliente de todas as assinaturas
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
}

func (h *Hub) subscribe(marketID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[marketID]; !ok {
		h.subs[marketID] = make(map[*client]struct{})
	}
	h.subs[marketID][c] = struct{}{}
}

func (h *Hub) unsubscribe(marketID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[marketID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, marketID)
		}
	}
}

// Subscribers devolve quantos clientes assinam o mercado
func (h *Hub) Subscribers(marketID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[marketID])
}

// Broadcast envia a atualização para os inscritos no mercado correspondente
func (h *Hub) Broadcast(update PoolUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.MarketID]))
	for c := range h.subs[update.MarketID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range targets {
		if err := c.write(b); err != nil {
			// depois de um timeout a conexão gorilla fica inutilizável;
			// fechar também encerra o loop de leitura em HandleWS
			h.drop(c)
			_ = c.conn.Close()
		}
	}
}
