package pii

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/athapong/pii-mcp/pkg/pii/metrics"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// OverlapPolicy decides what happens to entities covering the same text
type OverlapPolicy string

const (
	// OverlapKeepAll keeps every entity as an independent signal
	OverlapKeepAll OverlapPolicy = "keep_all"
	// OverlapHighestConfidence keeps, per span, only the highest scoring
	// entity of each overlapping group
	OverlapHighestConfidence OverlapPolicy = "highest_confidence"
)

// ParseOverlapPolicy validates a policy name
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(s) {
	case "", OverlapKeepAll:
		return OverlapKeepAll, nil
	case OverlapHighestConfidence:
		return OverlapHighestConfidence, nil
	default:
		return "", errors.Errorf("unknown overlap policy %q", s)
	}
}

// Detector runs the recognizer registry over every span of a document and
// merges the candidates into canonical entities.
type Detector struct {
	recognizers []Recognizer
	mutex       sync.RWMutex
	logger      *logrus.Logger
	batchSize   int
	entities    mapset.Set[EntityType]
	overlap     OverlapPolicy
	tightBBoxes bool
}

// Option configures a Detector
type Option func(*Detector)

// WithLogger replaces the default JSON logger
func WithLogger(logger *logrus.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBatchSize bounds how many spans are scanned concurrently
func WithBatchSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithEntities restricts output to the given types. No types means all.
func WithEntities(types ...EntityType) Option {
	return func(d *Detector) {
		if len(types) == 0 {
			d.entities = nil
			return
		}
		d.entities = mapset.NewSet[EntityType](types...)
	}
}

// WithOverlapPolicy sets how overlapping entities are reconciled
func WithOverlapPolicy(policy OverlapPolicy) Option {
	return func(d *Detector) {
		d.overlap = policy
	}
}

// WithTightBBoxes toggles sub-span box resolution. When disabled every
// entity carries its source span's box.
func WithTightBBoxes(enabled bool) Option {
	return func(d *Detector) {
		d.tightBBoxes = enabled
	}
}

// NewDetector creates a detector with no recognizers registered
func NewDetector(opts ...Option) *Detector {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	d := &Detector{
		recognizers: make([]Recognizer, 0),
		logger:      logger,
		batchSize:   10,
		overlap:     OverlapKeepAll,
		tightBBoxes: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddRecognizer registers a recognizer. Registration is expected to happen
// once, before the first call to Detect.
func (d *Detector) AddRecognizer(r Recognizer) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.recognizers = append(d.recognizers, r)
}

// Recognizers returns the names of the registered recognizers
func (d *Detector) Recognizers() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	names := make([]string, 0, len(d.recognizers))
	for _, r := range d.recognizers {
		names = append(names, r.Name())
	}
	return names
}

type spanJob struct {
	index int
	page  Page
	span  TextSpan
}

type spanOutcome struct {
	entities []DetectedEntity
	warnings []string
}

// Detect scans every span of doc. Recognizer failures are isolated and
// reported as warnings; a detector with nothing usable returns an empty
// result rather than an error.
func (d *Detector) Detect(ctx context.Context, doc *Document) (*Result, error) {
	if doc == nil {
		return nil, errors.New("cannot process nil document")
	}

	result := &Result{
		DocumentID:     doc.ID,
		Entities:       make([]DetectedEntity, 0),
		FalsePositives: make([]FalsePositive, 0),
		Warnings:       make([]string, 0),
	}

	d.mutex.RLock()
	recognizers := make([]Recognizer, len(d.recognizers))
	copy(recognizers, d.recognizers)
	d.mutex.RUnlock()

	if len(recognizers) == 0 {
		err := errors.Wrap(ErrDetectorUnavailable, "no recognizers configured")
		d.logger.WithError(err).WithField("doc_id", doc.ID).Warn("Returning empty result")
		metrics.DocumentsProcessed.WithLabelValues("unavailable").Inc()
		result.Warnings = append(result.Warnings, err.Error())
		result.Summarize()
		return result, nil
	}

	var jobs []spanJob
	for _, page := range doc.Pages {
		for _, span := range page.Spans {
			jobs = append(jobs, spanJob{index: len(jobs), page: page, span: span})
		}
	}

	d.logger.WithFields(logrus.Fields{
		"doc_id":      doc.ID,
		"span_count":  len(jobs),
		"recognizers": len(recognizers),
	}).Info("Starting detection")

	outcomes := make([]spanOutcome, len(jobs))

	// Process in batches
	for i := 0; i < len(jobs); i += d.batchSize {
		if err := ctx.Err(); err != nil {
			metrics.DocumentsProcessed.WithLabelValues("cancelled").Inc()
			return nil, errors.Wrap(err, "detection cancelled")
		}

		end := i + d.batchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		var wg sync.WaitGroup
		for _, job := range jobs[i:end] {
			wg.Add(1)
			go func(j spanJob) {
				defer wg.Done()
				timer := prometheus.NewTimer(metrics.SpanProcessingDuration.WithLabelValues("span"))
				outcomes[j.index] = d.processSpan(ctx, recognizers, j)
				timer.ObserveDuration()
			}(job)
		}
		wg.Wait()
	}

	for _, outcome := range outcomes {
		result.Entities = append(result.Entities, outcome.entities...)
		result.Warnings = append(result.Warnings, outcome.warnings...)
	}
	result.Summarize()

	metrics.DocumentsProcessed.WithLabelValues("success").Inc()
	d.logger.WithFields(logrus.Fields{
		"doc_id":   doc.ID,
		"entities": len(result.Entities),
		"warnings": len(result.Warnings),
	}).Info("Detection completed")

	return result, nil
}

func (d *Detector) processSpan(ctx context.Context, recognizers []Recognizer, job spanJob) spanOutcome {
	var outcome spanOutcome

	for _, r := range recognizers {
		candidates, err := d.runRecognizer(ctx, r, job.span)
		if err != nil {
			kind := ErrorKind(err)
			metrics.RecognizerFailures.WithLabelValues(r.Name(), kind).Inc()
			d.logger.WithError(err).WithFields(logrus.Fields{
				"span_id":    job.span.ID,
				"recognizer": r.Name(),
				"kind":       kind,
			}).Warn("Recognizer contribution dropped")
			outcome.warnings = append(outcome.warnings,
				fmt.Sprintf("recognizer %s skipped span %s: %v", r.Name(), job.span.ID, err))
			continue
		}

		for _, c := range candidates {
			entity, ok := d.materialize(r.Name(), job, c)
			if ok {
				outcome.entities = append(outcome.entities, entity)
			}
		}
	}

	if d.overlap == OverlapHighestConfidence {
		outcome.entities = resolveOverlaps(outcome.entities)
	}

	for _, entity := range outcome.entities {
		metrics.EntitiesDetected.WithLabelValues(string(entity.Type), string(entity.Method)).Inc()
	}
	return outcome
}

// runRecognizer converts every failure mode of a recognizer into an error
func (d *Detector) runRecognizer(ctx context.Context, r Recognizer, span TextSpan) (candidates []Candidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			candidates = nil
			err = errors.Wrapf(ErrRecognizerPanic, "%s: %v", r.Name(), rec)
		}
	}()

	candidates, err = r.Recognize(ctx, span)
	if err != nil {
		if errors.Is(err, ErrDetectorUnavailable) || errors.Is(err, ErrRecognizerFailed) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrRecognizerFailed, "%s: %v", r.Name(), err)
	}
	return candidates, nil
}

func (d *Detector) materialize(recognizer string, job spanJob, c Candidate) (DetectedEntity, bool) {
	span := job.span
	entityType := MapLabel(c.Label)
	if entityType == EntityTypeUnmapped {
		metrics.UnmappedLabels.WithLabelValues(c.Label).Inc()
		d.logger.WithFields(logrus.Fields{
			"recognizer": recognizer,
			"label":      c.Label,
			"span_id":    span.ID,
		}).Debug("Dropping candidate with unmapped label")
		return DetectedEntity{}, false
	}
	if d.entities != nil && !d.entities.Contains(entityType) {
		return DetectedEntity{}, false
	}

	start := clampInt(c.Start, 0, len(span.Text))
	end := clampInt(c.End, start, len(span.Text))
	if end == start {
		return DetectedEntity{}, false
	}
	value := span.Text[start:end]

	runeStart, runeEnd := RuneOffsets(span.Text, start, end)
	bbox := span.BBox
	if d.tightBBoxes {
		bbox = SubspanBBox(span.BBox, utf8.RuneCountInString(span.Text), runeStart, runeEnd)
	}
	if job.page.HasSize() {
		bbox = ClampBBoxToPage(bbox, job.page.Width, job.page.Height)
	}

	method := c.Method
	if method == MethodPattern {
		method = MethodRule
	}

	validations := make(map[string]interface{}, len(c.Validations)+3)
	for k, v := range c.Validations {
		validations[k] = v
	}
	validations["recognizer"] = recognizer
	validations["ocr_confidence"] = span.OCRConfidence
	switch method {
	case MethodRule:
		if _, ok := validations["regex_match"]; !ok {
			validations["regex_match"] = true
		}
		if _, ok := validations["context_score"]; !ok {
			validations["context_score"] = c.Confidence
		}
	case MethodNER:
		validations["ner_label"] = c.Label
	}

	return DetectedEntity{
		Type:          entityType,
		Value:         value,
		RedactedValue: Mask(value, entityType),
		Confidence:    c.Confidence,
		Method:        method,
		Page:          span.Page,
		BBox:          bbox,
		SpanIDs:       []string{span.ID},
		Language:      span.Language,
		Start:         runeStart,
		End:           runeEnd,
		Validations:   validations,
	}, true
}

// resolveOverlaps keeps the highest confidence entity of every group of
// overlapping entities from one span. Survivors keep their original order.
func resolveOverlaps(entities []DetectedEntity) []DetectedEntity {
	if len(entities) < 2 {
		return entities
	}

	order := make([]int, len(entities))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entities[order[a]].Confidence > entities[order[b]].Confidence
	})

	kept := make([]bool, len(entities))
	winners := make([]int, 0, len(entities))
	for _, idx := range order {
		candidate := entities[idx]
		absorbed := false
		for _, w := range winners {
			if overlaps(entities[w], candidate) {
				recordMerge(&entities[w], candidate)
				absorbed = true
				break
			}
		}
		if !absorbed {
			kept[idx] = true
			winners = append(winners, idx)
		}
	}

	out := make([]DetectedEntity, 0, len(winners))
	for i, entity := range entities {
		if kept[i] {
			out = append(out, entity)
		}
	}
	return out
}

func overlaps(a, b DetectedEntity) bool {
	return a.Start < b.End && b.Start < a.End
}

func recordMerge(winner *DetectedEntity, loser DetectedEntity) {
	merged, _ := winner.Validations["merged_from"].([]string)
	winner.Validations["merged_from"] = append(merged, fmt.Sprintf("%s/%s", loser.Type, loser.Method))
}
