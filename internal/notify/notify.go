// Package notify pushes import reports to an ntfy topic so operators
// hear about finished or failed inventory imports.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/importer"
)

// Client implements the ntfy notification client. It satisfies
// importer.Reporter.
type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

// NewClient creates a new ntfy client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

var _ importer.Reporter = (*Client)(nil)

// SendSuccess reports a finished import.
func (c *Client) SendSuccess(ctx context.Context, result *importer.Result, duration time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Import Complete: %s", result.Subdivision)
	message := FormatSuccessMessage(result, duration)
	tags := c.config.Tags + ",white_check_mark"

	return c.send(ctx, title, message, tags, c.config.Priority)
}

// SendFailure reports an import that aborted.
func (c *Client) SendFailure(ctx context.Context, result *importer.Result, duration time.Duration, err error) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Import Failed: %s", result.Subdivision)
	message := FormatFailureMessage(result, duration, err)
	tags := c.config.Tags + ",x"
	priority := "high"

	return c.send(ctx, title, message, tags, priority)
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopReporter is used when notifications are disabled.
type NoopReporter struct{}

func (n *NoopReporter) SendSuccess(_ context.Context, _ *importer.Result, _ time.Duration) error {
	return nil
}

func (n *NoopReporter) SendFailure(_ context.Context, _ *importer.Result, _ time.Duration, _ error) error {
	return nil
}

// New creates the appropriate reporter based on config.
func New(cfg *Config, logger *zap.Logger) importer.Reporter {
	if !cfg.Enabled {
		return &NoopReporter{}
	}
	return NewClient(cfg, logger)
}
