package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ApprovalChangedMessage announces that a transaction's approval was written.
type ApprovalChangedMessage struct {
	EventID       uuid.UUID `json:"eventId"`
	TransactionID string    `json:"transactionId"`
	Approved      bool      `json:"approved"`
	RequestID     string    `json:"requestId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewApprovalChangedMessage(transactionID string, approved bool) *ApprovalChangedMessage {
	return &ApprovalChangedMessage{
		EventID:       uuid.New(),
		TransactionID: transactionID,
		Approved:      approved,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *ApprovalChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ApprovalChangedMessageFromJSON decodes and validates a message body.
func ApprovalChangedMessageFromJSON(data []byte) (*ApprovalChangedMessage, error) {
	var msg ApprovalChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" {
		return nil, errors.New("approval message without transaction id")
	}
	if msg.EventID == uuid.Nil {
		return nil, errors.New("approval message without event id")
	}
	return &msg, nil
}
