package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Notifier sends alert notifications to external channels. run is the report
// run the alerts were evaluated after; nil when no run is known.
type Notifier interface {
	Notify(run *RunSummary, alerts []Alert) error
}

type slackNotifier struct {
	webhookURL string
	title      string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier posting to a Slack incoming webhook.
// title heads every message, typically the report name.
func NewSlackNotifier(webhookURL, title string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		title:      title,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts alerts to the webhook. No request is made when alerts is empty.
func (s *slackNotifier) Notify(run *RunSummary, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(s.buildMessage(run, alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *slackNotifier) buildMessage(run *RunSummary, alerts []Alert) slackMessage {
	title := "kar report alerts"
	if s.title != "" {
		title = s.title + " report alerts"
	}
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
	}
	if run != nil {
		blocks = append(blocks, slackBlock{Type: "context", Elements: runContext(*run)})
	}

	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Message,
			alert.TriggeredAt.Format("2006-01-02 15:04 UTC"),
		)
		if alert.Condition != "" {
			text += fmt.Sprintf(" \u00b7 `%s`", alert.Condition)
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}
	return slackMessage{Blocks: blocks}
}

// runContext describes the run: its ID and counts, then the workbook it wrote
// or the reason it failed.
func runContext(run RunSummary) []slackText {
	status := "generated"
	if run.Failed {
		status = "failed"
	}
	elems := []slackText{{
		Type: "mrkdwn",
		Text: fmt.Sprintf("Run `%s` %s: %d task(s), %d excluded, %d description error(s)",
			run.RunID, status, run.Tasks, run.Excluded, run.Errors),
	}}
	switch {
	case run.Failed && run.Message != "":
		elems = append(elems, slackText{Type: "mrkdwn", Text: "Error: " + run.Message})
	case run.ReportPath != "":
		elems = append(elems, slackText{Type: "mrkdwn", Text: "Workbook: `" + filepath.Base(run.ReportPath) + "`"})
	}
	return elems
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "\u2753"
	}
}
