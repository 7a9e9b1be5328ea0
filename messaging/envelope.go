package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every floor event published downstream.
type Envelope struct {
	MessageID string          `json:"message_id"`
	Kind      string          `json:"kind"`
	Source    string          `json:"source"`
	SentAt    string          `json:"sent_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Event kinds.
const (
	KindOrderStarted  = "order.started"
	KindOrderAdvanced = "order.advanced"
	KindSagaFailed    = "saga.failed"
	KindShiftStarted  = "shift.started"
	KindShiftStopped  = "shift.stopped"
)

func NewEnvelope(kind, source string, payload any) *Envelope {
	data, _ := json.Marshal(payload)
	return &Envelope{
		MessageID: uuid.New().String(),
		Kind:      kind,
		Source:    source,
		SentAt:    time.Now().Format(time.RFC3339),
		Payload:   data,
	}
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// OrderEvent is the payload for order.started / order.advanced / saga.failed.
type OrderEvent struct {
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Zone    string `json:"zone"`
	Detail  string `json:"detail,omitempty"`
}

// ShiftEvent is the payload for shift.started / shift.stopped.
type ShiftEvent struct {
	UserID int64 `json:"user_id"`
}

// EventTopic builds the topic for a floor event kind.
func EventTopic(prefix, kind string) string {
	if prefix == "" {
		prefix = "atelier"
	}
	return prefix + "." + kind
}
