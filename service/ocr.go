package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/pkg/logger"
)

// errCircuitOpen marks a backend skipped because its circuit was open.
// It is absorbed into the attempt list and never surfaced on its own.
var errCircuitOpen = errors.New("circuit open, backend skipped")

// OCRClient performs a single OCR call against one backend endpoint.
type OCRClient interface {
	Recognize(ctx context.Context, endpoint string, pdf []byte) (string, error)
}

// HTTPOCRClient posts the raw PDF bytes to the backend and expects the
// extracted text as a plain-text 200 response.
type HTTPOCRClient struct {
	client *http.Client
}

func NewHTTPOCRClient() *HTTPOCRClient {
	// No client-level timeout; every call is bounded by its context.
	return &HTTPOCRClient{client: &http.Client{}}
}

func (c *HTTPOCRClient) Recognize(ctx context.Context, endpoint string, pdf []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(pdf))
	if err != nil {
		return "", fmt.Errorf("build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read OCR response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR backend returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return string(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// OCRResult is the outcome of a successful OCR stage.
type OCRResult struct {
	Text        string
	BackendUsed string
	Latency     time.Duration
}

// OCRSelector tries the configured backends in priority order with
// per-backend timeouts and circuit breaking via the health registry.
type OCRSelector struct {
	backends []config.OCRBackendConfig
	registry *HealthRegistry
	client   OCRClient
}

func NewOCRSelector(backends []config.OCRBackendConfig, registry *HealthRegistry, client OCRClient) *OCRSelector {
	ordered := make([]config.OCRBackendConfig, len(backends))
	copy(ordered, backends)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return &OCRSelector{backends: ordered, registry: registry, client: client}
}

// Extract runs OCR against the first eligible backend that succeeds.
// Each call is bounded by min(backend timeout, remaining ctx deadline).
// Failures and timeouts are recorded in the registry and the next
// backend is tried; if every backend is skipped or fails the combined
// OCRError is returned.
func (s *OCRSelector) Extract(ctx context.Context, pdf []byte) (*OCRResult, error) {
	var attempts []BackendAttempt

	for _, b := range s.backends {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, BackendAttempt{Backend: b.Name, Err: err})
			break
		}

		if !s.registry.IsEligible(b.Name, time.Now()) {
			logger.Debug(ctx, "skipping OCR backend", "backend", b.Name, "reason", "circuit open")
			attempts = append(attempts, BackendAttempt{Backend: b.Name, Err: errCircuitOpen})
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, b.Timeout())
		start := time.Now()
		text, err := s.client.Recognize(callCtx, b.Endpoint, pdf)
		cancel()
		latency := time.Since(start)

		if err != nil {
			s.registry.RecordFailure(b.Name)
			logger.Warn(ctx, "OCR backend failed",
				"backend", b.Name,
				"latency_ms", latency.Milliseconds(),
				"error", err,
			)
			attempts = append(attempts, BackendAttempt{Backend: b.Name, Err: err})
			continue
		}

		s.registry.RecordSuccess(b.Name)
		logger.Info(ctx, "OCR completed",
			"backend", b.Name,
			"latency_ms", latency.Milliseconds(),
			"text_length", len(text),
		)
		return &OCRResult{Text: text, BackendUsed: b.Name, Latency: latency}, nil
	}

	return nil, &OCRError{Attempts: attempts}
}
