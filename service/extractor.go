package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/pkg/logger"
)

// FieldExtractor turns OCR text into a structured contract record.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, ocrText string) (*model.ContractRecord, error)
}

// OpenAIExtractor calls an OpenAI-compatible chat-completions endpoint
// and validates the returned JSON against the contract record schema.
type OpenAIExtractor struct {
	cfg        *config.ExtractorConfig
	httpClient *http.Client
}

func NewOpenAIExtractor(cfg *config.ExtractorConfig) *OpenAIExtractor {
	return &OpenAIExtractor{
		cfg: cfg,
		// Per-call budget; the shared pipeline deadline still applies
		// through the request context.
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const extractorSystemPrompt = "You are an expert rental contract analyst. Return only valid JSON, no prose and no markdown."

func buildExtractionPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString("Extract the structured fields of the following rental contract.\n\n")
	b.WriteString("Contract text:\n")
	b.WriteString(ocrText)
	b.WriteString("\n\nReturn ONLY a JSON object with this exact structure:\n")
	b.WriteString(`{
  "property": {"address": "full address", "type": "Residential/Commercial"},
  "unit": {"number": "unit number", "size_sqm": 85.4},
  "landlord": {"name": "full name", "contact": "phone or email"},
  "tenant": {"name": "full name", "contact": "phone or email"},
  "lease": {
    "start_date": "2021-07-20",
    "end_date": "2022-07-19",
    "rent_amount": 48000.00,
    "deposit_amount": 4000.00,
    "notice_period_days": 90
  },
  "payment_schedule": [
    {"due_date": "2021-07-20", "amount": 12000.00, "label": "Cheque 1"}
  ],
  "responsibilities": {"maintenance": "free text", "utilities": "free text"},
  "documents": {"ejari": true, "inventory": false}
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Use null for information not clearly stated; do not guess.\n")
	b.WriteString("- Format dates as YYYY-MM-DD and amounts as plain numbers.\n")
	b.WriteString("- One payment_schedule entry per cheque or installment, in order.\n")
	b.WriteString("- documents maps document type to whether the contract indicates it exists.\n")
	return b.String()
}

// ExtractFields sends the OCR text to the language model, validates the
// response against the contract record schema, and decodes it. Any
// transport, decode, or schema failure is an extraction error; a
// response failing schema validation is never returned as a partial
// record.
func (e *OpenAIExtractor) ExtractFields(ctx context.Context, ocrText string) (*model.ContractRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	reqBody := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: extractorSystemPrompt},
			{Role: "user", Content: buildExtractionPrompt(ocrText)},
		},
		Temperature: e.cfg.TemperatureValue(),
		MaxTokens:   e.cfg.MaxTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		strings.TrimRight(e.cfg.APIURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}

	logger.Info(ctx, "extraction response received",
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("extraction service error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("extraction response contained no choices")
	}

	content := stripMarkdownFences(chat.Choices[0].Message.Content)

	if err := validateContractJSON([]byte(content)); err != nil {
		return nil, fmt.Errorf("validate extracted contract: %w", err)
	}

	var rec model.ContractRecord
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("decode extracted contract: %w", err)
	}
	return &rec, nil
}

// stripMarkdownFences removes ```json fences some models wrap around
// their output despite instructions.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
