package models

import "time"

// NotificationMessage is built for a single send and dropped afterwards.
type NotificationMessage struct {
	Source        string
	Recipients    []string
	Subject       string
	HTMLBody      string
	PlainTextBody string
}

// DeliveryReceipt means the provider accepted the message, not that it
// reached an inbox.
type DeliveryReceipt struct {
	Provider   string    `json:"provider"`
	MessageID  string    `json:"messageId"`
	AcceptedAt time.Time `json:"acceptedAt"`
}
