// Package crm provides a typed client for the CRM REST API: contacts,
// conversations, messages, calendar slots, and appointments.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/version"
)

// Retry tuning. Retry-After from the CRM overrides the computed delay.
const (
	backoffBase = 4 * time.Second
	backoffMax  = 60 * time.Second
	jitterMax   = 3 * time.Second
)

// Client is the CRM API client. Safe for concurrent use; holds no
// cross-request state beyond the token bucket.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	cfg        *config.CRMConfig
	limiter    *rate.Limiter
	logger     *slog.Logger

	// sleep is swapped in tests so retry paths don't run on wall clock.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a CRM client from resolved configuration.
// token is the resolved bearer token value.
func NewClient(cfg *config.CRMConfig, token string) *Client {
	return NewClientWithBaseURL(cfg, token, cfg.BaseURL)
}

// NewClientWithBaseURL creates a CRM client that targets a custom base URL.
// Useful for testing with an httptest server.
func NewClientWithBaseURL(cfg *config.CRMConfig, token, baseURL string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		baseURL: baseURL,
		token:   token,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  slog.Default().With("component", "crm-client"),
		sleep:   sleepContext,
	}
}

// GetContact fetches a contact by id.
func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var out struct {
		Contact Contact `json:"contact"`
	}
	if err := c.do(ctx, http.MethodGet, "/contacts/"+contactID, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get contact %s: %w", contactID, err)
	}
	return &out.Contact, nil
}

// UpdateContact updates mutable contact fields, including custom fields
// addressed by opaque field ids.
func (c *Client) UpdateContact(ctx context.Context, contactID string, update ContactUpdate) (*Contact, error) {
	var out struct {
		Contact Contact `json:"contact"`
	}
	if err := c.do(ctx, http.MethodPut, "/contacts/"+contactID, nil, update, &out); err != nil {
		return nil, fmt.Errorf("update contact %s: %w", contactID, err)
	}
	return &out.Contact, nil
}

// AddNote attaches a note to a contact.
func (c *Client) AddNote(ctx context.Context, contactID, body string) (*Note, error) {
	payload := map[string]string{"body": body}
	var out struct {
		Note Note `json:"note"`
	}
	if err := c.do(ctx, http.MethodPost, "/contacts/"+contactID+"/notes", nil, payload, &out); err != nil {
		return nil, fmt.Errorf("add note to contact %s: %w", contactID, err)
	}
	return &out.Note, nil
}

// ListConversations returns the conversations for a contact.
func (c *Client) ListConversations(ctx context.Context, contactID string) ([]Conversation, error) {
	query := url.Values{"contactId": {contactID}}
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/search", query, nil, &out); err != nil {
		return nil, fmt.Errorf("list conversations for contact %s: %w", contactID, err)
	}
	return out.Conversations, nil
}

// ListMessages returns up to limit messages of a conversation in
// chronological order.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int) ([]CRMMessage, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var out struct {
		Messages struct {
			Messages []CRMMessage `json:"messages"`
		} `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/messages", query, nil, &out); err != nil {
		return nil, fmt.Errorf("list messages for conversation %s: %w", conversationID, err)
	}
	return out.Messages.Messages, nil
}

// SendMessage delivers body to a contact over the given channel. Bodies
// longer than the CRM's 300-character limit are split along sentence
// boundaries; each chunk is one CRM call, issued in order. Returns the
// message id of the last chunk.
func (c *Client) SendMessage(ctx context.Context, contactID, body string, channel Channel) (string, error) {
	chunks := splitMessage(body)
	if len(chunks) == 0 {
		return "", fmt.Errorf("send message to contact %s: empty body", contactID)
	}

	var lastID string
	for i, chunk := range chunks {
		payload := map[string]string{
			"type":      string(channel),
			"contactId": contactID,
			"message":   chunk,
		}
		var out struct {
			MessageID string `json:"messageId"`
		}
		if err := c.do(ctx, http.MethodPost, "/conversations/messages", nil, payload, &out); err != nil {
			return "", fmt.Errorf("send message chunk %d/%d to contact %s: %w", i+1, len(chunks), contactID, err)
		}
		lastID = out.MessageID
	}
	return lastID, nil
}

// ListFreeSlots returns the open calendar slots between start and end.
func (c *Client) ListFreeSlots(ctx context.Context, calendarID string, start, end time.Time, tz string) ([]Slot, error) {
	query := url.Values{
		"startDate": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endDate":   {strconv.FormatInt(end.UnixMilli(), 10)},
		"timezone":  {tz},
	}
	var out struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.do(ctx, http.MethodGet, "/calendars/"+calendarID+"/free-slots", query, nil, &out); err != nil {
		return nil, fmt.Errorf("list free slots for calendar %s: %w", calendarID, err)
	}
	return out.Slots, nil
}

// CreateAppointment books an appointment on the configured calendar.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	payload := map[string]any{
		"calendarId":          c.cfg.CalendarID,
		"locationId":          c.cfg.LocationID,
		"contactId":           req.ContactID,
		"startTime":           req.Start.Format(time.RFC3339),
		"endTime":             req.End.Format(time.RFC3339),
		"title":               req.Title,
		"appointmentStatus":   "confirmed",
		"assignedUserId":      c.cfg.AssignedUserID,
		"meetingLocationType": req.MeetingType,
	}
	var out Appointment
	if err := c.do(ctx, http.MethodPost, "/calendars/events/appointments", nil, payload, &out); err != nil {
		return nil, fmt.Errorf("create appointment for contact %s: %w", req.ContactID, err)
	}
	return &out, nil
}

// do runs one logical CRM operation with retries. Transient and rate-limited
// failures are retried up to cfg.MaxAttempts with exponential backoff and
// jitter; Retry-After overrides the computed delay. Not-found, auth, and
// permanent client errors return immediately.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt-1, lastErr)
			c.logger.Warn("CRM request failed, retrying",
				"method", method,
				"path", path,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = c.doOnce(ctx, method, path, query, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("CRM unavailable after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.Full())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CRM request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read CRM response: %w", err)
	}

	if err := classifyStatus(resp.StatusCode, string(respBody), parseRetryAfter(resp.Header)); err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode CRM response: %w", err)
		}
	}
	return nil
}

// retryDelay computes the wait before the next attempt.
// attempt is zero-based (the attempt that just failed).
func retryDelay(attempt int, err error) time.Duration {
	if ra := retryAfterFrom(err); ra > 0 {
		return ra
	}
	d := backoffBase << attempt
	if d > backoffMax {
		d = backoffMax
	}
	d += time.Duration(rand.Int64N(int64(jitterMax)))
	if d > backoffMax {
		d = backoffMax
	}
	return d
}

// parseRetryAfter reads the Retry-After header as delay-seconds or HTTP date.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
