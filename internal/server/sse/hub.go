package sse

import (
	"encoding/json"
	"sync"
	"time"

	"echoplex-server/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Client represents a single connected SSE client.
type Client chan []byte

// Hub manages the set of active clients and broadcasts scan results to them.
type Hub struct {
	clients    map[Client]bool
	broadcast  chan []byte
	register   chan Client
	unregister chan Client
	mu         sync.Mutex
}

// ScanEvent is the payload pushed to dashboards after every scan.
type ScanEvent struct {
	Type           string               `json:"type"` // "image" or "video"
	Timestamp      time.Time            `json:"timestamp"`
	PersonCount    int                  `json:"person_count,omitempty"`
	FacesDetected  int                  `json:"faces_detected,omitempty"`
	FramesAnalyzed int                  `json:"frames_analyzed,omitempty"`
	Matches        []ScanEventMatch     `json:"matches"`
}

// ScanEventMatch is the condensed match information for the SSE message.
type ScanEventMatch struct {
	CaseID     string  `json:"caseId"`
	FullName   string  `json:"fullName"`
	Confidence float64 `json:"confidence"`
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100),
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
	}
}

// Run starts the hub's processing loop. Should run in its own goroutine.
func (h *Hub) Run() {
	log.Info("SSE hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Infof("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client <- message:
				default:
					// Client channel full or closed
					log.Warn("SSE client channel full or closed, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register registers a new client with the hub.
func (h *Hub) Register(client Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// Broadcast queues a message for all registered clients without blocking.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastImageScan publishes the outcome of a single-image scan.
func (h *Hub) BroadcastImageScan(result models.FrameResult) {
	event := ScanEvent{
		Type:          "image",
		Timestamp:     time.Now(),
		PersonCount:   result.PersonCount,
		FacesDetected: result.FacesDetected,
		Matches:       make([]ScanEventMatch, 0, len(result.Matches)),
	}
	for _, m := range result.Matches {
		event.Matches = append(event.Matches, ScanEventMatch{
			CaseID:     m.CaseID,
			FullName:   m.FullName,
			Confidence: m.Confidence,
		})
	}
	h.broadcastEvent(event)
}

// BroadcastVideoScan publishes the aggregate outcome of a video scan.
func (h *Hub) BroadcastVideoScan(framesAnalyzed int, matches []models.AggregatedMatch) {
	event := ScanEvent{
		Type:           "video",
		Timestamp:      time.Now(),
		FramesAnalyzed: framesAnalyzed,
		Matches:        make([]ScanEventMatch, 0, len(matches)),
	}
	for _, m := range matches {
		event.Matches = append(event.Matches, ScanEventMatch{
			CaseID:     m.CaseID,
			FullName:   m.FullName,
			Confidence: m.BestConfidence,
		})
	}
	h.broadcastEvent(event)
}

func (h *Hub) broadcastEvent(event ScanEvent) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal scan event for SSE: %v", err)
		return
	}
	h.Broadcast(jsonData)
}
