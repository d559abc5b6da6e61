package api

import (
	"context"
	"log/slog"
	"strings"

	"prositor/internal/config"
	"prositor/internal/importer"
	"prositor/internal/logging"
	"prositor/internal/notifications"
	"prositor/internal/services"
	"prositor/internal/services/pandoc"
)

// ImportFileRequest asks for text extraction from a local document file.
type ImportFileRequest struct {
	Config *config.Config
	Logger *slog.Logger
	Path   string
}

type ImportFileResult struct {
	Text     string
	JSONLike bool
	// Document is the parsed object when the extracted text is JSON-like.
	Document map[string]any
}

// ImportFile extracts plain text from a document file and, when the text is
// JSON-like, parses it into a document map ready for fromA/fromB injection.
func ImportFile(ctx context.Context, req ImportFileRequest) (ImportFileResult, error) {
	cfg := req.Config
	if cfg == nil {
		return ImportFileResult{}, services.Wrap(services.ErrConfiguration, "import", "start",
			"configuration is required", nil)
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return ImportFileResult{}, services.Wrap(services.ErrValidation, "import", "start",
			"file path is required", nil)
	}

	converter, err := pandoc.New(cfg.PandocBinary(), cfg.Render.TimeoutSeconds)
	if err != nil {
		return ImportFileResult{}, services.Wrap(services.ErrConfiguration, "import", "start",
			"create pandoc client", err)
	}
	imp, err := importer.New(converter)
	if err != nil {
		return ImportFileResult{}, err
	}

	extraction, err := imp.FromFile(ctx, path)
	if err != nil {
		return ImportFileResult{}, err
	}
	result := ImportFileResult{Text: extraction.Text, JSONLike: extraction.JSONLike}
	if extraction.JSONLike {
		doc, err := importer.Document(extraction.Text)
		if err != nil {
			return ImportFileResult{}, err
		}
		result.Document = doc
	}
	return result, nil
}

// TestNotificationRequest asks for a test push through the configured topic.
type TestNotificationRequest struct {
	Config   *config.Config
	Logger   *slog.Logger
	Notifier notifications.Service
}

type TestNotificationResult struct {
	Sent    bool
	Message string
}

// TestNotification publishes a test event so operators can verify their ntfy
// topic. When no topic is configured the result says so without sending.
func TestNotification(ctx context.Context, req TestNotificationRequest) (TestNotificationResult, error) {
	cfg := req.Config
	if cfg == nil {
		return TestNotificationResult{}, services.Wrap(services.ErrConfiguration, "notify", "test",
			"configuration is required", nil)
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return TestNotificationResult{Message: "No ntfy topic configured"}, nil
	}

	notifier := req.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		logger.Warn("test notification failed", logging.Error(err))
		return TestNotificationResult{Message: "Test notification failed"}, err
	}
	return TestNotificationResult{Sent: true, Message: "Test notification sent"}, nil
}
