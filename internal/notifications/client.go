package notifications

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"vocabbar/internal/sheets"

	"github.com/rs/zerolog/log"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string

	mutex       sync.Mutex
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func NewClient(baseURL, topic string, enabled bool, priority string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// NotifyWord pushes a word card to the ntfy topic.
func (c *Client) NotifyWord(ctx context.Context, entry sheets.WordEntry) error {
	return c.SendNotification(ctx, "Word of the day: "+entry.Word, FormatWordMessage(entry))
}

func (c *Client) SendNotification(ctx context.Context, title, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	err := c.send(ctx, title, message)
	c.mutex.Lock()
	if err != nil {
		c.totalFailed++
	} else {
		c.totalSent++
	}
	c.mutex.Unlock()
	return err
}

func (c *Client) send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("title", title).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}
	req.Header.Set("Tags", "books")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}

// FormatWordMessage renders an entry as a plain text notification body.
func FormatWordMessage(entry sheets.WordEntry) string {
	var sb strings.Builder

	sb.WriteString(entry.Word)
	sb.WriteString("\n")
	if entry.Meaning != "" {
		sb.WriteString(fmt.Sprintf("Meaning: %s\n", entry.Meaning))
	}
	if entry.Example != "" {
		sb.WriteString(fmt.Sprintf("Example: %s\n", entry.Example))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
