package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/middleware"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/pkg/logger"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/service"
)

// Analyzer runs the contract analysis pipeline on one PDF.
type Analyzer interface {
	Analyze(ctx context.Context, pdf []byte) (*model.PipelineResult, error)
}

// Archiver stores uploaded PDFs and hands out download URLs for them.
type Archiver interface {
	ArchivePDF(ctx context.Context, objectName string, reader io.Reader, size int64) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
	DeletePDF(ctx context.Context, objectName string) error
}

type AnalyzeHandler struct {
	pipeline Analyzer
	archive  Archiver
	store    *service.AnalysisStore
}

func NewAnalyzeHandler(pipeline Analyzer, archive Archiver, store *service.AnalysisStore) *AnalyzeHandler {
	return &AnalyzeHandler{
		pipeline: pipeline,
		archive:  archive,
		store:    store,
	}
}

// Analyze accepts a contract PDF upload and runs the full pipeline
// synchronously. The caller gets either the complete result or a typed
// failure; a failed request may be retried whole.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	analysisID := uuid.New().String()
	analysis := &model.Analysis{
		ID:        analysisID,
		Filename:  header.Filename,
		Tenant:    tenant,
		Status:    model.StatusProcessing,
		CreatedAt: time.Now(),
	}

	// Best-effort archive; analysis proceeds either way. The object name
	// is only recorded once the upload succeeded so Get never hands out
	// a URL for a PDF that isn't there.
	if h.archive != nil {
		objectName := fmt.Sprintf("%s/%s/%s", tenant, analysisID, header.Filename)
		if err := h.archive.ArchivePDF(c.Request.Context(), objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes))); err != nil {
			logger.Warn(c.Request.Context(), "failed to archive PDF",
				"analysis_id", analysisID,
				"error", err,
			)
		} else {
			analysis.ObjectName = objectName
		}
	}
	h.store.Save(analysis)

	result, err := h.pipeline.Analyze(c.Request.Context(), pdfBytes)
	if err != nil {
		kind := service.ErrorKind("internal")
		var perr *service.PipelineError
		if errors.As(err, &perr) {
			kind = perr.Kind
		}
		h.store.SetFailed(analysisID, string(kind), err.Error())

		status := http.StatusBadGateway
		if kind == service.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{
			"id":         analysisID,
			"status":     model.StatusFailed,
			"error_kind": kind,
			"error":      err.Error(),
		})
		return
	}

	h.store.SetResult(analysisID, result)
	c.JSON(http.StatusOK, gin.H{
		"id":       analysisID,
		"filename": header.Filename,
		"status":   model.StatusCompleted,
		"result":   result,
	})
}

// List returns recent analyses for the current tenant, without the
// full results.
func (h *AnalyzeHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	analyses := h.store.GetByTenant(tenant)

	result := make([]gin.H, len(analyses))
	for i, a := range analyses {
		result[i] = gin.H{
			"id":         a.ID,
			"filename":   a.Filename,
			"status":     a.Status,
			"error_kind": a.ErrorKind,
			"created_at": a.CreatedAt.Format(time.RFC3339),
			"updated_at": a.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"analyses": result})
}

// Get returns a single analysis including its full pipeline result,
// plus a presigned download URL for the archived PDF when one exists.
func (h *AnalyzeHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	analysis := h.store.Get(id)
	if analysis == nil || analysis.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	resp := gin.H{"analysis": analysis}
	if h.archive != nil && analysis.ObjectName != "" {
		url, err := h.archive.PresignedURL(c.Request.Context(), analysis.ObjectName)
		if err != nil {
			logger.Warn(c.Request.Context(), "failed to generate PDF download URL",
				"analysis_id", id,
				"error", err,
			)
		} else {
			resp["pdf_url"] = url
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Delete removes an analysis from the store along with its archived PDF.
func (h *AnalyzeHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	analysis := h.store.Get(id)
	if analysis == nil || analysis.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	if h.archive != nil && analysis.ObjectName != "" {
		if err := h.archive.DeletePDF(c.Request.Context(), analysis.ObjectName); err != nil {
			logger.Warn(c.Request.Context(), "failed to delete archived PDF",
				"analysis_id", id,
				"object_name", analysis.ObjectName,
				"error", err,
			)
		}
	}

	h.store.Delete(id)
	c.JSON(http.StatusOK, gin.H{"message": "Analysis deleted"})
}
