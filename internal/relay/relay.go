// Package relay fans chat events out to the WebSocket subscribers of a given
// interview. Persistence happens before publication, so the relay itself is
// stateless: it only tracks live connections and never stores messages.
package relay

import (
	"sync"

	"github.com/gorilla/websocket"
)

// FrameType discriminates relay frames on the wire.
type FrameType string

const (
	FrameMessage FrameType = "message"
	FrameSystem  FrameType = "system"
	FrameError   FrameType = "error"
)

// MessagePayload is the chat-message body of a FrameMessage frame.
type MessagePayload struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Frame is the envelope delivered to WebSocket subscribers.
type Frame struct {
	Type    FrameType       `json:"type"`
	Message *MessagePayload `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// Subscriber is one live WebSocket connection. Sends are serialized per
// subscriber so concurrent publishers never interleave frames on the socket.
type Subscriber struct {
	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(Frame) error
}

// NewSubscriber wraps a WebSocket connection.
func NewSubscriber(conn *websocket.Conn) *Subscriber {
	return &Subscriber{Conn: conn}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (s *Subscriber) SetSendHook(fn func(Frame) error) {
	s.mu.Lock()
	s.hook = fn
	s.mu.Unlock()
}

// Send delivers one frame to this subscriber. A non-nil error means the
// connection is no longer usable.
func (s *Subscriber) Send(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hook != nil {
		return s.hook(frame)
	}
	if s.Conn == nil {
		return websocket.ErrCloseSent
	}
	return s.Conn.WriteJSON(frame)
}

// Registry maps interview IDs to their live subscriber sets.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe attaches sub to the interview's room, creating it on demand.
func (r *Registry) Subscribe(interviewID string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[interviewID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		r.rooms[interviewID] = room
	}
	if _, exists := room[sub]; !exists {
		room[sub] = struct{}{}
		wsActive.Inc()
	}
}

// Unsubscribe detaches sub and prunes the room when it empties. Returns the
// number of subscribers remaining.
func (r *Registry) Unsubscribe(interviewID string, sub *Subscriber) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[interviewID]
	if !ok {
		return 0
	}
	if _, exists := room[sub]; exists {
		delete(room, sub)
		wsActive.Dec()
	}
	if len(room) == 0 {
		delete(r.rooms, interviewID)
		return 0
	}
	return len(room)
}

// Count reports the live subscriber count for an interview.
func (r *Registry) Count(interviewID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[interviewID])
}

// Publish delivers frame to every subscriber of the interview except the
// sender (pass nil to reach everyone). Subscribers whose send fails are
// dropped from the room so a dead connection cannot stall future publishes.
func (r *Registry) Publish(interviewID string, sender *Subscriber, frame Frame) {
	r.mu.RLock()
	room := r.rooms[interviewID]
	targets := make([]*Subscriber, 0, len(room))
	for s := range room {
		if s == sender {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	var dead []*Subscriber
	for _, s := range targets {
		if err := s.Send(frame); err != nil {
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		r.Unsubscribe(interviewID, s)
		wsDropped.Inc()
	}
}

// Close detaches every subscriber of the interview and closes their
// connections. Used when an interview finishes.
func (r *Registry) Close(interviewID string) {
	r.mu.Lock()
	room := r.rooms[interviewID]
	delete(r.rooms, interviewID)
	wsActive.Sub(float64(len(room)))
	r.mu.Unlock()

	for s := range room {
		if s.Conn != nil {
			_ = s.Conn.Close()
		}
	}
}
