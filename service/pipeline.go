package service

import (
	"context"
	"errors"
	"time"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/pkg/logger"
)

// Stage names one pipeline state.
type Stage string

const (
	StageIngesting  Stage = "ingesting"
	StageOCR        Stage = "ocr"
	StageExtracting Stage = "extracting"
	StageDeriving   Stage = "deriving"
	StageValidating Stage = "validating"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Pipeline sequences OCR, extraction, derivation and validation into
// one atomic result. All stages share a single deadline; any stage
// failure fails the whole request and nothing downstream runs. The
// pipeline never retries beyond the backend failover the OCR selector
// performs internally; retrying a whole request is the caller's call.
type Pipeline struct {
	selector  *OCRSelector
	extractor FieldExtractor
	deriveCfg config.DeriveConfig
	deadline  time.Duration
	now       func() time.Time
}

func NewPipeline(selector *OCRSelector, extractor FieldExtractor, deriveCfg config.DeriveConfig, deadline time.Duration) *Pipeline {
	return &Pipeline{
		selector:  selector,
		extractor: extractor,
		deriveCfg: deriveCfg,
		deadline:  deadline,
		now:       time.Now,
	}
}

// Analyze runs the full pipeline on one PDF. It returns either a
// complete PipelineResult or a PipelineError; never a partial result.
func (p *Pipeline) Analyze(ctx context.Context, pdf []byte) (*model.PipelineResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	result := &model.PipelineResult{
		StageDurations: make(map[string]time.Duration, 5),
		Errors:         []string{},
	}

	// Ingesting
	start := p.now()
	if len(pdf) == 0 {
		return nil, p.fail(ctx, StageIngesting, KindOCRFailure, errors.New("empty document"))
	}
	result.StageDurations[string(StageIngesting)] = time.Since(start)

	// OCR
	start = p.now()
	ocrRes, err := p.selector.Extract(ctx, pdf)
	result.StageDurations[string(StageOCR)] = time.Since(start)
	if err != nil {
		return nil, p.fail(ctx, StageOCR, KindOCRFailure, err)
	}
	result.OCRText = ocrRes.Text
	result.BackendUsed = ocrRes.BackendUsed

	// Extracting
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, StageExtracting, KindExtractionError, err)
	}
	start = p.now()
	rec, err := p.extractor.ExtractFields(ctx, ocrRes.Text)
	result.StageDurations[string(StageExtracting)] = time.Since(start)
	if err != nil {
		return nil, p.fail(ctx, StageExtracting, KindExtractionError, err)
	}
	result.Contract = rec

	// Deriving and validating are pure and fast, but the shared
	// deadline still applies to the request as a whole.
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, StageDeriving, KindExtractionError, err)
	}
	start = p.now()
	result.Events = DeriveEvents(rec, p.now(), p.deriveCfg)
	result.StageDurations[string(StageDeriving)] = time.Since(start)

	start = p.now()
	result.Gaps = ValidateCompleteness(rec)
	result.StageDurations[string(StageValidating)] = time.Since(start)

	logger.Info(ctx, "pipeline completed",
		"backend_used", result.BackendUsed,
		"events", len(result.Events),
		"gaps", len(result.Gaps),
	)
	return result, nil
}

// fail classifies a stage error. If the shared deadline expired, the
// caller sees a timeout regardless of which stage tripped on it.
func (p *Pipeline) fail(ctx context.Context, stage Stage, kind ErrorKind, err error) *PipelineError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	perr := &PipelineError{Kind: kind, Stage: stage, Err: err}
	logger.Error(ctx, "pipeline failed",
		"stage", string(stage),
		"kind", string(kind),
		"error", err,
	)
	return perr
}
