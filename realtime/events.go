package realtime

import (
	"encoding/json"

	"github.com/quizdesk/quizdesk/domain"
)

// Named events on the realtime channel.
const (
	// Inbound.
	EventUpdatePerformance = "UPDATE_PERFORMANCE"
	EventUpdateTestStatus  = "UPDATE_TEST_STATUS"

	// Outbound.
	EventConnectionSuccess  = "CONNECTION_SUCCESS"
	EventPerformanceUpdated = "PERFORMANCE_UPDATED"
	EventTestStatusUpdated  = "TEST_STATUS_UPDATED"
	EventConnectionError    = "CONNECTION_ERROR"
)

// Event is the wire envelope for both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PerformanceUpdate is the payload of UPDATE_PERFORMANCE and
// PERFORMANCE_UPDATED.
type PerformanceUpdate struct {
	UserID string  `json:"userId"`
	Score  float64 `json:"score"`
}

// TestStatusUpdate is the payload of UPDATE_TEST_STATUS and
// TEST_STATUS_UPDATED.
type TestStatusUpdate struct {
	TestID string            `json:"testId"`
	Status domain.TestStatus `json:"status"`
}

// ConnectionAck is the payload of CONNECTION_SUCCESS.
type ConnectionAck struct {
	ConnectionID string `json:"connectionId"`
}

// ErrorPayload is the payload of CONNECTION_ERROR.
type ErrorPayload struct {
	Message string `json:"message"`
}

func newEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload types are our own structs; marshalling cannot fail at
		// runtime with valid inputs.
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Data: data}
}

func errorEvent(message string) Event {
	return newEvent(EventConnectionError, ErrorPayload{Message: message})
}
