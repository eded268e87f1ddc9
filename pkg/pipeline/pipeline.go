package pipeline

import (
	"context"
	"sync"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/athapong/pii-mcp/pkg/pii/metrics"
	"github.com/athapong/pii-mcp/pkg/pii/validator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Pipeline runs detection and, when a validator is attached, contextual
// validation over documents.
type Pipeline struct {
	detector  *pii.Detector
	validator *validator.Validator
	logger    *logrus.Logger
	batchSize int
}

// New creates a pipeline. v may be nil, which disables validation.
func New(detector *pii.Detector, v *validator.Validator, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Pipeline{
		detector:  detector,
		validator: v,
		logger:    logger,
		batchSize: 4,
	}
}

// SetBatchSize bounds how many documents BatchProcess runs at once
func (p *Pipeline) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// ValidationAvailable reports whether a validator is attached
func (p *Pipeline) ValidationAvailable() bool {
	return p.validator != nil
}

// Process detects entities in doc and validates them when useLLM is set.
// Requesting validation without a validator adds a warning instead of
// failing.
func (p *Pipeline) Process(ctx context.Context, doc *pii.Document, useLLM bool) (*pii.Result, error) {
	if doc == nil {
		return nil, errors.New("cannot process nil document")
	}

	timer := prometheus.NewTimer(metrics.PipelineProcessingDuration.WithLabelValues("single"))
	defer timer.ObserveDuration()

	result, err := p.detector.Detect(ctx, doc)
	if err != nil {
		return nil, errors.Wrapf(err, "detect %s", doc.ID)
	}

	if useLLM {
		if p.validator == nil {
			result.Warnings = append(result.Warnings, "contextual validation requested but not configured")
		} else {
			p.validator.ValidateResult(ctx, result, doc.Text())
		}
	}

	p.logger.WithFields(logrus.Fields{
		"doc_id":          doc.ID,
		"entities":        result.Summary.TotalEntities,
		"false_positives": result.Summary.TotalFalsePositives,
		"validated":       useLLM && p.validator != nil,
	}).Info("Document processing completed")
	return result, nil
}

// BatchProcess processes documents concurrently. Results are returned in
// input order; the first error aborts the remaining batches.
func (p *Pipeline) BatchProcess(ctx context.Context, docs []*pii.Document, useLLM bool) ([]*pii.Result, error) {
	p.logger.WithField("document_count", len(docs)).Info("Starting batch processing")
	metrics.PipelineQueueLength.Set(float64(len(docs)))
	defer metrics.PipelineQueueLength.Set(0)

	results := make([]*pii.Result, len(docs))

	// Process in batches
	for i := 0; i < len(docs); i += p.batchSize {
		end := i + p.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		errs := make(chan error, end-i)
		var wg sync.WaitGroup

		for idx := i; idx < end; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()

				timer := prometheus.NewTimer(metrics.PipelineProcessingDuration.WithLabelValues("batch"))
				result, err := p.Process(ctx, docs[idx], useLLM)
				timer.ObserveDuration()

				if err != nil {
					p.logger.WithError(err).WithField("doc_id", docIDOf(docs[idx])).Error("Failed to process document")
					errs <- err
					return
				}
				results[idx] = result
			}(idx)
		}

		wg.Wait()
		close(errs)
		metrics.PipelineQueueLength.Set(float64(len(docs) - end))

		for err := range errs {
			if err != nil {
				return nil, errors.Wrap(err, "batch processing failed")
			}
		}
	}

	p.logger.Info("Batch processing completed successfully")
	return results, nil
}

func docIDOf(doc *pii.Document) string {
	if doc == nil {
		return ""
	}
	return doc.ID
}
