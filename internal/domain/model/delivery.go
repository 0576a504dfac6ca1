package model

import "time"

// Delivery is a webhook delivery that was processed successfully.
type Delivery struct {
	ID         string
	Event      string
	Action     string
	ReceivedAt time.Time
}
