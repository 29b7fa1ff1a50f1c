package ws

import (
	"encoding/json"
	"log"
)

// BoardNotifier adapts the hub to the controller's Notifier interface,
// marshalling board payloads into hub events.
type BoardNotifier struct {
	hub *Hub
}

// NewBoardNotifier wraps a hub for use as a kitchen.Notifier.
func NewBoardNotifier(hub *Hub) *BoardNotifier {
	return &BoardNotifier{hub: hub}
}

// Notify broadcasts one board change to every connected client.
func (n *BoardNotifier) Notify(event string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal board event %s: %v", event, err)
		return
	}
	n.hub.Broadcast(Event{Type: event, Payload: b})
}
