package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/finfeex/internal/analysis"
	"github.com/insightdelivered/finfeex/internal/logging"
	"github.com/insightdelivered/finfeex/internal/metrics"
	"github.com/insightdelivered/finfeex/internal/models"
	"github.com/insightdelivered/finfeex/internal/narrative"
	"github.com/insightdelivered/finfeex/internal/report"
	"github.com/insightdelivered/finfeex/internal/writer"
)

// Options configures a Handler. Metrics and Summarizer may be nil.
type Options struct {
	Service        *analysis.Service
	Summarizer     narrative.Summarizer
	Metrics        *metrics.Recorder
	Logger         logging.Logger
	Defaults       analysis.Params
	MaxUploadBytes int64
	SummaryTimeout time.Duration
	StaticDir      string
	Version        string
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	service        *analysis.Service
	summarizer     narrative.Summarizer
	metrics        *metrics.Recorder
	logger         logging.Logger
	defaults       analysis.Params
	maxUploadBytes int64
	summaryTimeout time.Duration
	staticDir      string
	version        string
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		service:        opts.Service,
		summarizer:     opts.Summarizer,
		metrics:        opts.Metrics,
		logger:         logger,
		defaults:       opts.Defaults,
		maxUploadBytes: opts.MaxUploadBytes,
		summaryTimeout: opts.SummaryTimeout,
		staticDir:      opts.StaticDir,
		version:        opts.Version,
	}
}

// analyzeRequest holds the form fields of POST /api/analyze. Values missing
// from the form keep the server defaults they were seeded with.
type analyzeRequest struct {
	EstimatedAnnualTxns int      `form:"estimatedAnnualTxns" validate:"gte=0,lte=10000000"`
	AssumedTxnValue     *float64 `form:"assumedTxnValue" default:"100" validate:"required,finite,gte=0"`
	Recipient           string   `form:"recipient" default:"Support" validate:"max=120"`
	Text                string   `form:"text"`
}

type feesRequest struct {
	Fees []models.AnnualizedFee `json:"fees"`
}

type compareRequest struct {
	Statements []models.StatementRecord `json:"statements" validate:"dive"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	routes := app.Group("/api")
	routes.Get("/health", h.handleHealth)
	routes.Post("/analyze", h.handleAnalyze)
	routes.Post("/export", h.handleExport)
	routes.Post("/compare", h.handleCompare)
	routes.Post("/summarize", h.handleSummarize)

	// Serve the SPA: existing files first, index.html for client-side routes.
	if h.staticDir != "" {
		app.Static("/", h.staticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			if strings.HasPrefix(c.Path(), "/api/") {
				return fiber.ErrNotFound
			}
			return c.SendFile(filepath.Join(h.staticDir, "index.html"))
		})
	}
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
		"engine":  "fiber",
	})
}

func (h *Handler) handleAnalyze(c *fiber.Ctx) error {
	assumed := h.defaults.AssumedTxnValue
	req := analyzeRequest{
		EstimatedAnnualTxns: h.defaults.EstimatedAnnualTxns,
		AssumedTxnValue:     &assumed,
		Recipient:           h.defaults.Recipient,
	}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	params := analysis.Params{
		EstimatedAnnualTxns: req.EstimatedAnnualTxns,
		AssumedTxnValue:     *req.AssumedTxnValue,
		Recipient:           req.Recipient,
	}

	fh, err := c.FormFile("file")
	if err == nil {
		data, err := h.readUpload(fh)
		if err != nil {
			return err
		}
		result, err := h.service.AnalyzeFile(fh.Filename, data, params)
		if err != nil {
			return err
		}
		return c.JSON(result)
	}

	if strings.TrimSpace(req.Text) == "" {
		return BadRequestError(CodeNoInput, "file", "No statement uploaded. Use form field 'file' (.pdf or .txt) or 'text'.")
	}
	return c.JSON(h.service.AnalyzeText(req.Text, params))
}

func (h *Handler) handleExport(c *fiber.Ctx) error {
	format, err := writer.ParseFormat(c.Query("format", string(writer.FormatCSV)))
	if err != nil {
		return err
	}

	var req feesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := writer.Export(&buf, req.Fees, format); err != nil {
		return InternalError("Export failed.").WithError(err)
	}

	h.logger.Debug("Fees exported",
		logging.F(logging.FieldFormat, format),
		logging.F(logging.FieldCount, len(req.Fees)))

	c.Attachment("finfeex_fees." + string(format))
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(buf.Bytes())
}

func (h *Handler) handleCompare(c *fiber.Ctx) error {
	var req compareRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cmp, err := report.Compare(req.Statements)
	if err != nil {
		return err
	}
	return c.JSON(cmp)
}

func (h *Handler) handleSummarize(c *fiber.Ctx) error {
	if h.summarizer == nil {
		h.recordSummary("disabled")
		return narrative.ErrDisabled
	}

	var req feesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	if h.summaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.summaryTimeout)
		defer cancel()
	}

	prompt := narrative.BuildPrompt(req.Fees, report.NewLabel(req.Fees))
	summary, err := h.summarizer.Summarize(ctx, prompt)
	switch {
	case err == nil:
		h.recordSummary("ok")
		return c.JSON(summaryResponse{Summary: summary})
	case errors.Is(err, narrative.ErrRateLimited):
		h.recordSummary("rate_limited")
		return err
	case errors.Is(err, narrative.ErrDisabled):
		h.recordSummary("disabled")
		return err
	default:
		h.recordSummary("error")
		return NewAppError(CodeUpstream, "", "The AI summary service failed.", fiber.StatusBadGateway).WithError(err)
	}
}

func (h *Handler) recordSummary(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordSummary(outcome)
	}
}

// readUpload reads the uploaded file and checks that its name and leading
// bytes agree on PDF or plain text.
func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return nil, NewAppError(CodeTooLarge, "file",
			fmt.Sprintf("Statement is larger than %d MB.", h.maxUploadBytes>>20), fiber.StatusRequestEntityTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" && ext != ".txt" {
		return nil, BadRequestError(CodeUnsupportedFile, "file", "Only .pdf and .txt statements are supported.")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, InternalError("Failed to read uploaded file.").WithError(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, InternalError("Failed to read uploaded file.").WithError(err)
	}
	if len(data) == 0 {
		return data, nil
	}

	if err := checkContentType(ext, data); err != nil {
		h.logger.Warn("Upload content does not match its extension",
			logging.F(logging.FieldFile, fh.Filename))
		return nil, err
	}
	return data, nil
}

// checkContentType sniffs the first 512 bytes.
func checkContentType(ext string, data []byte) error {
	detected := http.DetectContentType(data)
	detected = strings.ToLower(strings.TrimSpace(strings.Split(detected, ";")[0]))

	want := "text/plain"
	if ext == ".pdf" {
		want = "application/pdf"
	}
	if detected != want {
		return BadRequestError(CodeContentMismatch, "file",
			fmt.Sprintf("File content (%s) does not match a %s statement.", detected, ext))
	}
	return nil
}
