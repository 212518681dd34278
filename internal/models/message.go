package models

import "time"

// Message is a single persisted chat line.
//
// UserID references either a registered User or a guest id. Username is only
// stored for guest authors; for registered authors it is resolved from the
// user record when messages are read back.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
