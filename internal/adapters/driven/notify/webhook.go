// Package notify delivers status events to a Discord-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
)

// DefaultTimeout bounds webhook delivery. The sink is best-effort; a slow
// webhook must not eat into the invocation's budget.
const DefaultTimeout = 10 * time.Second

const footerText = "voltaic scheduler"

// Severity colors, matching the channel's existing conventions.
var severityColors = map[domain.Severity]int{
	domain.SeveritySuccess: 0x00ff00, // green
	domain.SeverityWarning: 0xffa500, // orange
	domain.SeverityError:   0xff0000, // red
	domain.SeverityFatal:   0x800080, // purple
}

// Ensure WebhookNotifier implements the interface.
var _ driven.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts NotificationEvents as webhook embeds.
// A notifier with an empty URL silently drops events, so deployments
// without a configured sink need no special casing.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// embed mirrors the webhook's embed object.
type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
	Footer      embedFooter  `json:"footer"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

// Send posts one event to the webhook.
func (n *WebhookNotifier) Send(ctx context.Context, event domain.NotificationEvent) error {
	if n.url == "" {
		return nil
	}

	payload := webhookPayload{
		Username: "voltaic",
		Embeds:   []embed{buildEmbed(event)},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook delivery failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// buildEmbed renders the event, detail keys sorted for stable output.
func buildEmbed(event domain.NotificationEvent) embed {
	keys := make([]string, 0, len(event.Detail))
	for k := range event.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]embedField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, embedField{Name: k, Value: event.Detail[k], Inline: true})
	}

	description := ""
	if event.ID != "" {
		description = "event " + event.ID
	}

	return embed{
		Title:       event.Title,
		Description: description,
		Color:       severityColors[event.Severity],
		Fields:      fields,
		Timestamp:   event.Timestamp.Format(time.RFC3339),
		Footer:      embedFooter{Text: footerText},
	}
}
