// Package notify delivers Teams webhook cards for request lifecycle
// events. Delivery is best-effort: a missing webhook URL is a silent
// no-op and a failed send is logged, never returned to the request
// path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sentinel-desk/config"
	"sentinel-desk/core/store"
	"sentinel-desk/core/utils"
)

// Card is the Teams MessageCard payload: a human-readable section plus
// flat key/value facts.
type Card struct {
	Type       string    `json:"@type"`
	Context    string    `json:"@context"`
	ThemeColor string    `json:"themeColor"`
	Summary    string    `json:"summary"`
	Sections   []Section `json:"sections"`
}

type Section struct {
	ActivityTitle    string `json:"activityTitle"`
	ActivitySubtitle string `json:"activitySubtitle,omitempty"`
	Facts            []Fact `json:"facts,omitempty"`
	Text             string `json:"text,omitempty"`
	Markdown         bool   `json:"markdown"`
}

type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type WebhookSender interface {
	Send(ctx context.Context, url string, card *Card) error
}

type HTTPWebhookSender struct {
	client *http.Client
}

func NewHTTPWebhookSender(timeout time.Duration) *HTTPWebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWebhookSender{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPWebhookSender) Send(ctx context.Context, url string, card *Card) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("webhook url missing")
	}
	raw, _ := json.Marshal(card)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook status %d", resp.StatusCode)
}

type Notifier struct {
	cfg    config.TeamsConfig
	sender WebhookSender
	logger *utils.Logger
}

func NewNotifier(cfg config.TeamsConfig, sender WebhookSender, logger *utils.Logger) *Notifier {
	return &Notifier{cfg: cfg, sender: sender, logger: logger}
}

func (n *Notifier) configured() bool {
	return n != nil && n.sender != nil && strings.TrimSpace(n.cfg.WebhookURL) != ""
}

// NotifyNewRequest pushes a card for a freshly created report.
func (n *Notifier) NotifyNewRequest(ctx context.Context, req *store.Request) {
	if !n.configured() || req == nil {
		return
	}
	if err := n.sender.Send(ctx, n.cfg.WebhookURL, BuildRequestCard(req)); err != nil && n.logger != nil {
		n.logger.Errorf("webhook notify %s: %v", req.ID, err)
	}
}

// NotifyStaleRequests pushes one summary card for the reminder sweep.
func (n *Notifier) NotifyStaleRequests(ctx context.Context, stale []store.Request) {
	if !n.configured() || len(stale) == 0 {
		return
	}
	card := &Card{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: "FF8C00",
		Summary:    fmt.Sprintf("%d stale security request(s)", len(stale)),
		Sections: []Section{{
			ActivityTitle: "Stale Security Requests",
			Text:          fmt.Sprintf("%d request(s) have had no update recently.", len(stale)),
			Facts:         staleFacts(stale),
			Markdown:      true,
		}},
	}
	if err := n.sender.Send(ctx, n.cfg.WebhookURL, card); err != nil && n.logger != nil {
		n.logger.Errorf("webhook stale reminder: %v", err)
	}
}

// NotifyTest sends a sample card so operators can verify the channel.
// Unlike the lifecycle notifications this surfaces the error: the whole
// point of the endpoint is to see whether delivery works.
func (n *Notifier) NotifyTest(ctx context.Context) error {
	if n == nil || n.sender == nil {
		return errors.New("webhook sender unavailable")
	}
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return errors.New("webhook url not configured")
	}
	card := &Card{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: "0076D7",
		Summary:    "Test notification",
		Sections: []Section{{
			ActivityTitle: "Security Request Desk",
			Text:          "Test notification. The webhook channel is working.",
			Markdown:      true,
		}},
	}
	return n.sender.Send(ctx, n.cfg.WebhookURL, card)
}

// BuildRequestCard shapes the notification payload for a new report:
// card title plus the flat facts (reportId, severity, subject,
// reporterName, reporterEmail) consumers key on.
func BuildRequestCard(req *store.Request) *Card {
	reporterName := docString(req.SubmitterInfo, "name")
	reporterEmail := docString(req.SubmitterInfo, "email")
	return &Card{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: severityColor(req.Priority),
		Summary:    "New security request " + req.ID,
		Sections: []Section{{
			ActivityTitle:    "New Security Request",
			ActivitySubtitle: req.RequestType,
			Facts: []Fact{
				{Name: "reportId", Value: req.ID},
				{Name: "severity", Value: req.Priority},
				{Name: "subject", Value: req.RequestType},
				{Name: "reporterName", Value: reporterName},
				{Name: "reporterEmail", Value: reporterEmail},
			},
			Text:     req.Reason,
			Markdown: true,
		}},
	}
}

func staleFacts(stale []store.Request) []Fact {
	var facts []Fact
	for _, req := range stale {
		facts = append(facts, Fact{
			Name:  req.ID,
			Value: fmt.Sprintf("%s, %s since %s", req.RequestType, req.Status, req.UpdatedAt.UTC().Format("2006-01-02")),
		})
	}
	return facts
}

func severityColor(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "critical":
		return "FF0000"
	case "high":
		return "FF8C00"
	case "low":
		return "2EB886"
	default:
		return "FFD700"
	}
}

func docString(doc store.Document, key string) string {
	if doc == nil {
		return ""
	}
	if s, ok := doc[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
