package controller

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"taskforge/models"
)

// BoardEvent is one live update pushed to board subscribers.
type BoardEvent struct {
	Type   string      `json:"type"` // task_created, task_updated, task_deleted, tasks_allocated, subtasks_assigned
	TeamID uint        `json:"team_id"`
	Data   interface{} `json:"data,omitempty"`
}

// boardClient pairs a websocket connection with a write lock. Gorilla-style
// conns allow only one concurrent writer, and Publish runs on whatever
// request goroutine triggered the event.
type boardClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (bc *boardClient) send(ev BoardEvent) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.conn.WriteJSON(ev)
}

// BoardHub fans board events out to websocket subscribers, keyed by team.
type BoardHub struct {
	mu   sync.RWMutex
	subs map[uint]map[*boardClient]bool
}

var Board = &BoardHub{subs: make(map[uint]map[*boardClient]bool)}

func (h *BoardHub) subscribe(teamID uint, client *boardClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[teamID] == nil {
		h.subs[teamID] = make(map[*boardClient]bool)
	}
	h.subs[teamID][client] = true
}

func (h *BoardHub) unsubscribe(teamID uint, client *boardClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[teamID], client)
	if len(h.subs[teamID]) == 0 {
		delete(h.subs, teamID)
	}
}

// Publish sends an event to every subscriber of the team's board. Write
// failures drop the connection; the read loop cleans it up.
func (h *BoardHub) Publish(ev BoardEvent) {
	h.mu.RLock()
	clients := make([]*boardClient, 0, len(h.subs[ev.TeamID]))
	for client := range h.subs[ev.TeamID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.send(ev); err != nil {
			client.conn.Close()
		}
	}
}

// HandleBoardWS serves the live board channel. The upgrade goes through the
// JWT middleware, so the authenticated user is in the conn locals. The client
// sends {"team_id": N, "action": "subscribe"} and must be a member of that
// team; from then on it receives BoardEvent frames until it disconnects.
func HandleBoardWS(db *gorm.DB, c *websocket.Conn) {
	defer c.Close()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		c.WriteJSON(map[string]string{"error": "not authenticated"})
		return
	}

	var input struct {
		TeamID uint   `json:"team_id"`
		Action string `json:"action"`
	}

	if err := c.ReadJSON(&input); err != nil {
		log.Printf("Error reading board subscription: %v", err)
		return
	}

	if input.Action != "subscribe" || input.TeamID == 0 {
		c.WriteJSON(map[string]string{"error": "expected a subscribe message with a team_id"})
		return
	}

	var membership models.TeamMember
	if err := db.Where("team_id = ? AND user_id = ?", input.TeamID, user.ID).
		First(&membership).Error; err != nil {
		c.WriteJSON(map[string]string{"error": "not a member of this team"})
		return
	}

	client := &boardClient{conn: c}
	Board.subscribe(input.TeamID, client)
	defer Board.unsubscribe(input.TeamID, client)

	// Drain the connection until the client goes away
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
