// Package textextract turns uploaded documents into plain text and paragraphs.
// Binary formats go through an Apache Tika server; HTML is parsed locally.
package textextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 5 * time.Second
)

// ErrParserRetriesExhausted means every Tika attempt returned a non-200 status.
var ErrParserRetriesExhausted = errors.New(errors.CodeParserExhausted, "document parser retries exhausted")

// TikaConfig configures the Tika client.
type TikaConfig struct {
	URL        string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// TikaClient extracts text through the Tika REST API.
type TikaClient struct {
	cfg        TikaConfig
	httpClient *http.Client
	logger     logging.Logger
	onRetry    func()
}

// NewTikaClient builds a client. A zero MaxRetries keeps the default; pass a
// negative value to disable retries.
func NewTikaClient(cfg TikaConfig, logger logging.Logger) *TikaClient {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	return &TikaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("tika"),
	}
}

// OnRetry registers a callback invoked before every retry.
func (c *TikaClient) OnRetry(fn func()) { c.onRetry = fn }

// GetText sends body to Tika and returns the plain text. Any non-200 answer is
// retried after a fixed delay. body is buffered once so retries can resend it.
func (c *TikaClient) GetText(ctx context.Context, name string, body io.Reader) (string, error) {
	if c.cfg.URL == "" {
		return "", errors.Unavailable("tika url is not configured")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalidParam, "failed to read document")
	}

	var lastStatus int
	for attempt := 0; ; attempt++ {
		status, text, err := c.put(ctx, data)
		if err != nil {
			return "", err
		}
		if status == http.StatusOK {
			c.logger.Info("Document parsed", logging.String("name", name), logging.Int("attempt", attempt+1))
			return text, nil
		}
		lastStatus = status
		c.logger.Warn("Tika returned error status",
			logging.String("name", name),
			logging.Int("status", status),
			logging.Int("attempt", attempt+1))
		if attempt >= c.cfg.MaxRetries {
			break
		}
		if c.onRetry != nil {
			c.onRetry()
		}
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "document parsing cancelled")
		case <-time.After(c.cfg.RetryDelay):
		}
	}
	return "", ErrParserRetriesExhausted.WithDetail(fmt.Sprintf("%s: last status %d", name, lastStatus))
}

func (c *TikaClient) put(ctx context.Context, data []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.URL+"/tika", bytes.NewReader(data))
	if err != nil {
		return 0, "", errors.Wrap(err, errors.CodeInternal, "failed to build tika request")
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "document parsing cancelled")
		}
		return 0, "", errors.Wrap(err, errors.CodeExternalService, "tika request failed")
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", errors.Wrap(err, errors.CodeExternalService, "failed to read tika response")
	}
	return resp.StatusCode, string(out), nil
}
