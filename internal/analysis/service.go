// Package analysis runs the full statement pipeline: extract text, detect
// fee lines, annualize them and build the label and complaint draft.
package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/insightdelivered/finfeex/internal/costs"
	"github.com/insightdelivered/finfeex/internal/detector"
	"github.com/insightdelivered/finfeex/internal/extractor"
	"github.com/insightdelivered/finfeex/internal/logging"
	"github.com/insightdelivered/finfeex/internal/metrics"
	"github.com/insightdelivered/finfeex/internal/models"
	"github.com/insightdelivered/finfeex/internal/report"
)

// Params are the per-statement annualization inputs.
type Params struct {
	EstimatedAnnualTxns int
	AssumedTxnValue     float64
	Recipient           string
}

// ErrInvalidParams reports a negative or non-finite annualization input.
var ErrInvalidParams = errors.New("invalid analysis parameters")

// Validate rejects negative transaction counts and negative, NaN or
// infinite transaction values.
func (p Params) Validate() error {
	if p.EstimatedAnnualTxns < 0 {
		return fmt.Errorf("%w: estimated annual transactions must not be negative, got %d", ErrInvalidParams, p.EstimatedAnnualTxns)
	}
	if !costs.IsFinite(p.AssumedTxnValue) || p.AssumedTxnValue < 0 {
		return fmt.Errorf("%w: assumed transaction value must be a finite, non-negative number, got %v", ErrInvalidParams, p.AssumedTxnValue)
	}
	return nil
}

// Service analyses statements. Metrics may be nil.
type Service struct {
	extractor    *extractor.Extractor
	metrics      *metrics.Recorder
	logger       logging.Logger
	previewChars int
}

// NewService wires a Service.
func NewService(ext *extractor.Extractor, rec *metrics.Recorder, logger logging.Logger, previewChars int) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		extractor:    ext,
		metrics:      rec,
		logger:       logger,
		previewChars: previewChars,
	}
}

// AnalyzeFile extracts text from an uploaded statement and analyses it.
// It fails only when the upload is empty or too large.
func (s *Service) AnalyzeFile(name string, data []byte, p Params) (*models.Analysis, error) {
	start := time.Now()

	res, err := s.extractor.Extract(name, data)
	if err != nil {
		return nil, err
	}
	if res.PDFError != nil {
		s.logger.WithError(res.PDFError).Warn("PDF extraction failed, decoded as text",
			logging.F(logging.FieldFile, name))
		if s.metrics != nil {
			s.metrics.RecordTextFallback()
		}
	}

	a := s.analyze(res.Text, p)
	a.Source = res.Source
	a.Pages = res.Pages
	s.record(a, name, start)
	return a, nil
}

// AnalyzeText analyses statement text supplied directly.
func (s *Service) AnalyzeText(text string, p Params) *models.Analysis {
	start := time.Now()
	a := s.analyze(text, p)
	a.Source = models.SourceText
	s.record(a, "", start)
	return a
}

func (s *Service) analyze(text string, p Params) *models.Analysis {
	fees := costs.Annualize(detector.Detect(text), p.EstimatedAnnualTxns, p.AssumedTxnValue)
	label := report.NewLabel(fees)

	return &models.Analysis{
		Preview:   extractor.Preview(text, s.previewChars),
		Fees:      fees,
		Label:     label,
		LabelText: report.Markdown(label),
		Complaint: report.DraftComplaint(fees, p.Recipient),
	}
}

func (s *Service) record(a *models.Analysis, name string, start time.Time) {
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordAnalysis(string(a.Source), elapsed.Seconds())
		for _, f := range a.Fees {
			s.metrics.RecordFeeLine(string(f.Category))
		}
	}
	for _, f := range a.Fees {
		s.logger.Debug("Fee line detected",
			logging.F(logging.FieldCategory, f.Category),
			logging.F(logging.FieldType, f.Type),
		)
	}
	s.logger.Info("Statement analysed",
		logging.F(logging.FieldFile, name),
		logging.F(logging.FieldSource, a.Source),
		logging.F(logging.FieldCount, len(a.Fees)),
		logging.F(logging.FieldDuration, elapsed.Milliseconds()),
	)
}
