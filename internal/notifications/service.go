package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prositor/internal/config"
)

const userAgent = "Prositor/0.1.0"

// Event identifies a run milestone worth notifying about.
type Event string

const (
	EventRunStarted        Event = "run_started"
	EventDocumentGenerated Event = "document_generated"
	EventRunCompleted      Event = "run_completed"
	EventRunFailed         Event = "run_failed"
	EventTest              Event = "test"
)

// Payload carries the formatting values for one event.
type Payload map[string]string

// Service defines the notification surface exposed to run components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	notifCfg := cfg.Notifications
	topic := strings.TrimSpace(notifCfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(notifCfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		sendGeneration: notifCfg.Generation,
		sendErrors:     notifCfg.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	sendGeneration bool
	sendErrors     bool
}

// Publish formats and delivers one event. Events suppressed by configuration
// return nil without an HTTP call.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	data, ok, err := n.format(event, payload)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool, error) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventRunStarted:
		if !n.sendGeneration {
			return message{}, false, nil
		}
		return message{
			title: "Prositor - Génération lancée",
			body:  fmt.Sprintf("Sujet : %s (mode %s)", get("topic"), get("mode")),
			tags:  []string{"prositor", "run", "started"},
		}, true, nil

	case EventDocumentGenerated:
		if !n.sendGeneration {
			return message{}, false, nil
		}
		body := fmt.Sprintf("Document prêt : %s", get("documentTitle"))
		if filename := get("filename"); filename != "" {
			body = fmt.Sprintf("%s\nFichier : %s", body, filename)
		}
		return message{
			title: "Prositor - Document généré",
			body:  body,
			tags:  []string{"prositor", "document", "generated"},
		}, true, nil

	case EventRunCompleted:
		if !n.sendGeneration {
			return message{}, false, nil
		}
		duration := get("duration")
		if duration == "" {
			duration = "0s"
		}
		title := "Prositor - Génération terminée"
		body := fmt.Sprintf("%s : %s document(s) généré(s) en %s", get("topic"), orZero(get("documents")), duration)
		if warnings := get("warnings"); warnings != "" && warnings != "0" {
			title = "Prositor - Génération terminée (avec avertissements)"
			body = fmt.Sprintf("%s : %s document(s) généré(s), %s avertissement(s) en %s",
				get("topic"), orZero(get("documents")), warnings, duration)
		}
		return message{
			title:    title,
			body:     body,
			tags:     []string{"prositor", "run", "completed"},
			priority: "high",
		}, true, nil

	case EventRunFailed:
		if !n.sendErrors {
			return message{}, false, nil
		}
		var builder strings.Builder
		builder.WriteString("Échec de la génération")
		if topic := get("topic"); topic != "" {
			builder.WriteString(" : ")
			builder.WriteString(topic)
		}
		builder.WriteString("\n")
		if errText := get("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("cause inconnue")
		}
		return message{
			title:    "Prositor - Échec",
			body:     builder.String(),
			tags:     []string{"prositor", "error", "alert"},
			priority: "high",
		}, true, nil

	case EventTest:
		return message{
			title:    "Prositor - Test",
			body:     "Test du système de notifications",
			tags:     []string{"prositor", "test"},
			priority: "low",
		}, true, nil
	}

	return message{}, false, fmt.Errorf("unknown notification event %q", event)
}

func orZero(value string) string {
	if value == "" {
		return "0"
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
