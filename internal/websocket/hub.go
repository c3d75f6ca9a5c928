package websocket

import "github.com/rs/zerolog/log"

// userMessage is a message addressed to every client of one user.
type userMessage struct {
	username string
	data     []byte
}

// clientMessage is a message addressed to one client.
type clientMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and routes messages to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages for every connected client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages for the clients of a single user.
	direct chan userMessage

	// Replies to a single client.
	replies chan clientMessage

	// A map of usernames to the set of their connected clients.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		direct:        make(chan userMessage, 64),
		replies:       make(chan clientMessage, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("Websocket hub stopped")
			return
		case client := <-h.Register:
			h.clients[client] = true
			if client.Username != "" {
				h.addSubscription(client, client.Username)
			}
			log.Info().Int("total_clients", len(h.clients)).Str("username", client.Username).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Str("username", client.Username).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		case msg := <-h.direct:
			for client := range h.subscriptions[msg.username] {
				h.deliver(client, msg.data)
			}
		case msg := <-h.replies:
			if h.clients[msg.client] {
				h.deliver(msg.client, msg.data)
			}
		}
	}
}

// Stop ends the Run loop and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Attach registers client and reports false once the hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters client. It returns immediately when the hub has stopped.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// BroadcastTo queues a message for all clients of username. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) BroadcastTo(username string, message []byte) {
	select {
	case h.direct <- userMessage{username: username, data: message}:
	default:
		log.Warn().Str("username", username).Msg("Websocket queue full, dropping message")
	}
}

// reply queues a message for one client without blocking.
func (h *Hub) reply(client *Client, message []byte) {
	select {
	case h.replies <- clientMessage{client: client, data: message}:
	default:
		log.Warn().Str("username", client.Username).Msg("Websocket queue full, dropping reply")
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, username string) {
	if h.subscriptions[username] == nil {
		h.subscriptions[username] = make(map[*Client]bool)
	}
	h.subscriptions[username][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.Username]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.Username)
		}
	}
}
