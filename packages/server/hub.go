// Package server pushes cell changes of a spreadsheet to websocket clients
// and applies edits they send.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vogtb/go-spreadsheet/packages/logging"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

type direct struct {
	client  *Client
	message []byte
}

// Hub keeps track of connected clients and fans updates out to them.
type Hub struct {
	sheet  *spreadsheet.Spreadsheet
	logger logging.Logger

	clients map[*Client]bool

	broadcast chan []byte

	// replies meant for a single client
	reply chan direct

	register chan *Client

	unregister chan *Client

	// closed when Run returns
	done chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger used by the hub and its clients.
func WithLogger(logger logging.Logger) Option {
	return func(h *Hub) {
		h.logger = logger.WithComponent("server")
	}
}

// NewHub creates a hub serving sheet. Run must be started before clients
// connect.
func NewHub(sheet *spreadsheet.Spreadsheet, opts ...Option) *Hub {
	h := &Hub{
		sheet:      sheet,
		logger:     logging.Nop(),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		reply:      make(chan direct),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run dispatches messages until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			h.logger.Info("hub stopped")
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client registered",
				logging.F("remote", client.remote), logging.F("clients", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("client unregistered",
					logging.F("remote", client.remote), logging.F("clients", len(h.clients)))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("client too slow, dropping", logging.F("remote", client.remote))
					h.drop(client)
				}
			}
		case r := <-h.reply:
			if _, ok := h.clients[r.client]; !ok {
				continue
			}
			select {
			case r.client.send <- r.message:
			default:
				h.drop(r.client)
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// Publish broadcasts the current state of the named cells to every client.
// it is a no-op once the hub has stopped.
func (h *Hub) Publish(names []string) {
	if len(names) == 0 {
		return
	}
	msg := encode(updateFor(h.sheet, names))
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) send(client *Client, msg Message) {
	select {
	case h.reply <- direct{client: client, message: encode(msg)}:
	case <-h.done:
	}
}

// handle applies one raw request from client
func (h *Hub) handle(client *Client, raw []byte) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		h.send(client, errorFor(fmt.Errorf("malformed request: %w", err)))
		return
	}

	switch req.Op {
	case OpSet:
		affected, err := h.sheet.SetContentsOfCell(req.Name, req.Contents)
		if err != nil {
			h.send(client, errorFor(err))
			return
		}
		h.logger.Debug("remote edit",
			logging.F("remote", client.remote), logging.F("cell", req.Name), logging.F("affected", len(affected)))
		h.Publish(affected)
	case OpGet:
		name, err := h.sheet.CanonicalName(req.Name)
		if err != nil {
			h.send(client, errorFor(err))
			return
		}
		h.send(client, updateFor(h.sheet, []string{name}))
	case OpSnapshot:
		h.send(client, updateFor(h.sheet, h.sheet.NamesOfAllNonemptyCells()))
	default:
		h.send(client, errorFor(fmt.Errorf("unknown op '%s'", req.Op)))
	}
}

// Handler returns the http handler exposing the websocket endpoint at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}
