// Package mandrill is a small client for the Mandrill JSON API covering the
// template and message endpoints used by the sync.
package mandrill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

// Error names returned by the API that mean the template does not exist
const errUnknownTemplate = "Unknown_Template"

// APIError is an error payload returned by Mandrill
type APIError struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mandrill: %s (%d): %s", e.Name, e.Code, e.Message)
}

// Is lets errors.Is match unknown templates against apperrors.ErrNotFound
func (e *APIError) Is(target error) bool {
	return target == apperrors.ErrNotFound && e.Name == errUnknownTemplate
}

// Client calls the Mandrill API with a single API key
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     *logger.Logger
}

// New creates a client. An empty baseURL selects the public endpoint.
func New(baseURL, key string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://mandrillapp.com/api/1.0"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: timeout},
		log:     log.Component("mandrill"),
	}
}

type templateRequest struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	FromEmail string   `json:"from_email"`
	FromName  string   `json:"from_name"`
	Subject   string   `json:"subject"`
	Code      string   `json:"code"`
	Text      string   `json:"text"`
	Publish   bool     `json:"publish"`
	Labels    []string `json:"labels"`
}

func (c *Client) templateRequest(t models.Template) templateRequest {
	labels := t.Labels
	if labels == nil {
		labels = []string{}
	}
	return templateRequest{
		Key:       c.key,
		Name:      t.Name,
		FromEmail: t.FromEmail,
		FromName:  t.FromName,
		Subject:   t.Subject,
		Code:      t.HTML,
		Text:      t.Text,
		Publish:   true,
		Labels:    labels,
	}
}

// UpdateTemplate replaces and publishes an existing template
func (c *Client) UpdateTemplate(ctx context.Context, t models.Template) error {
	return c.call(ctx, "/templates/update.json", c.templateRequest(t), nil)
}

// AddTemplate creates and publishes a new template
func (c *Client) AddTemplate(ctx context.Context, t models.Template) error {
	return c.call(ctx, "/templates/add.json", c.templateRequest(t), nil)
}

// DeleteTemplate deletes a template by name
func (c *Client) DeleteTemplate(ctx context.Context, name string) error {
	req := map[string]string{"key": c.key, "name": name}
	return c.call(ctx, "/templates/delete.json", req, nil)
}

// ListTemplates returns every template of the account
func (c *Client) ListTemplates(ctx context.Context) ([]models.TemplateSummary, error) {
	var out []models.TemplateSummary
	if err := c.call(ctx, "/templates/list.json", map[string]string{"key": c.key}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type recipient struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type sendMessage struct {
	HTML      string      `json:"html"`
	Subject   string      `json:"subject"`
	FromEmail string      `json:"from_email"`
	FromName  string      `json:"from_name"`
	To        []recipient `json:"to"`
}

type sendRequest struct {
	Key     string      `json:"key"`
	Message sendMessage `json:"message"`
}

// SendResult is the per-recipient delivery status
type SendResult struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason"`
}

// SendMessage sends an email. It fails when the API errors or when every
// recipient is rejected.
func (c *Client) SendMessage(ctx context.Context, msg models.Message) error {
	to := make([]recipient, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, recipient{Email: strings.TrimSpace(addr), Type: "to"})
	}

	req := sendRequest{
		Key: c.key,
		Message: sendMessage{
			HTML:      msg.HTML,
			Subject:   msg.Subject,
			FromEmail: msg.FromEmail,
			FromName:  msg.FromName,
			To:        to,
		},
	}

	var results []SendResult
	if err := c.call(ctx, "/messages/send.json", req, &results); err != nil {
		return err
	}

	delivered := 0
	for _, r := range results {
		switch r.Status {
		case "rejected", "invalid":
			c.log.Warnf("message to %s %s: %s", r.Email, r.Status, r.RejectReason)
		default:
			delivered++
		}
	}
	if len(results) > 0 && delivered == 0 {
		return fmt.Errorf("mandrill: message rejected for all %d recipient(s)", len(results))
	}
	return nil
}

func (c *Client) call(ctx context.Context, endpoint string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("mandrill: encode %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mandrill: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mandrill: call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mandrill: read %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Name == "" {
			return fmt.Errorf("mandrill: call %s: unexpected status %d", endpoint, resp.StatusCode)
		}
		return apiErr
	}

	c.log.Debugf("%s ok", endpoint)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mandrill: decode %s: %w", endpoint, err)
	}
	return nil
}
