// darts-league/live/hub.go
package live

import (
	"encoding/json"
	"log"
	"sync"
)

// Типы сообщений, которые рассылаются подписчикам комнаты лиги.
const (
	EventLeaderboardUpdated  = "LEADERBOARD_UPDATED"
	EventResultsRecalculated = "RESULTS_RECALCULATED"
	EventTournamentLinked    = "TOURNAMENT_LINKED"
	EventTournamentUnlinked  = "TOURNAMENT_UNLINKED"
)

// Message — конверт события для клиентов. Комната — id лиги.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Hub держит websocket-подписки на обновления лиг. Каждая комната — лига;
// страница лиги подписывается и получает события пересчёта без поллинга.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			log.Printf("live: client joined room %s (%d total)", client.Room, len(h.rooms[client.Room]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.mu.Lock()
					if !client.closed {
						close(client.send)
						client.closed = true
					}
					client.mu.Unlock()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom отправляет событие всем подписчикам лиги. Медленные
// клиенты с переполненным каналом пропускаются, не блокируя рассылку.
func (h *Hub) BroadcastToRoom(roomID string, message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	message.RoomID = roomID
	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("live: failed to marshal message for room %s: %v", roomID, err)
		return
	}

	for client := range clients {
		client.mu.Lock()
		if client.closed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- payload:
		default:
			log.Printf("live: send channel full for a client in room %s, skipping", roomID)
		}
		client.mu.Unlock()
	}
}
