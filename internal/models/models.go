package models

import (
	"encoding/json"
	"time"
)

// Template is the remote representation of a synced email template
type Template struct {
	Name      string   `json:"name"`
	Labels    []string `json:"labels"`
	FromEmail string   `json:"from_email"`
	FromName  string   `json:"from_name"`
	Subject   string   `json:"subject"`
	HTML      string   `json:"code"`
	Text      string   `json:"text"`
}

// TemplateSummary is a template as reported by the remote store listing
type TemplateSummary struct {
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	Labels           []string `json:"labels"`
	PublishSubject   *string  `json:"publish_subject"`
	PublishCode      *string  `json:"publish_code"`
	PublishText      *string  `json:"publish_text"`
	PublishFromEmail *string  `json:"publish_from_email"`
	PublishFromName  *string  `json:"publish_from_name"`
}

// Message is an outbound email
type Message struct {
	FromEmail string   `json:"from_email" validate:"required,email"`
	FromName  string   `json:"from_name"`
	To        []string `json:"to" validate:"required,min=1,dive,email"`
	Subject   string   `json:"subject" validate:"required"`
	HTML      string   `json:"html" validate:"required"`
}

// SyncResponse is the body returned after a processed push
type SyncResponse struct {
	Input json.RawMessage `json:"input"`
	Files []string        `json:"files"`
}

// Delivery is one webhook delivery as kept in the ledger
type Delivery struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Event      string    `json:"event"`
	Ref        string    `json:"ref"`
	StatusCode int       `json:"status_code"`
	Processed  int       `json:"processed"`
	Errors     int       `json:"errors"`
	ReceivedAt time.Time `json:"received_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	ChatConnected bool   `json:"chat_connected"`
	Timestamp     int64  `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
