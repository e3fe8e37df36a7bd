package events

import "time"

const (
	EventTypeReservationChanged = "ReservationChanged"
	reservationChangedSchema    = "contracts/events/basket/ReservationChanged.v1.payload.schema.json"
)

type ReservationChangedPayload struct {
	UserID    string            `json:"userId"`
	Action    string            `json:"action"`
	Lines     []ReservationLine `json:"lines"`
	Timestamp time.Time         `json:"timestamp"`
}

type ReservationLine struct {
	ProductID  string `json:"productId"`
	Held       int    `json:"held"`
	StockDelta int    `json:"stockDelta"`
}

type ReservationChangedEvent struct {
	EventEnvelope
	Payload ReservationChangedPayload `json:"payload"`
}
