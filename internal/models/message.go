package models

// Message is the error body shape the console's error parser understands.
type Message struct {
	Message string `json:"message"`
}
