package validator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/athapong/pii-mcp/pkg/pii/metrics"
	"github.com/pkg/errors"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout      = 20 * time.Second
	DefaultThreshold    = 0.3
	DefaultContextChars = 200

	// FalsePositiveReason is recorded on every demoted entity
	FalsePositiveReason = "Low confidence"
)

const promptTemplate = "Analyze if the detected entity is correctly identified and, if needed, suggest corrections.\n\n" +
	"Context: %s\n" +
	"Detected Entity: %s (type: %s)\n\n" +
	"Respond ONLY with minified JSON object with keys: confidence (0..1), corrected_type (optional), corrected_value (optional). Do NOT include reasoning."

// TokenCounter reports the number of model tokens in a prompt
type TokenCounter interface {
	Count(text string) int
}

// Validator asks a Judge for a second opinion on each entity, blends the
// scores and demotes entities the judge rejects.
type Validator struct {
	judge        Judge
	logger       *logrus.Logger
	timeout      time.Duration
	threshold    float64
	contextChars int
	concurrency  int
	tokens       TokenCounter
}

// Option configures a Validator
type Option func(*Validator)

func WithLogger(logger *logrus.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithThreshold sets the judge confidence below which an entity becomes a
// false positive.
func WithThreshold(t float64) Option {
	return func(v *Validator) {
		v.threshold = t
	}
}

func WithContextChars(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.contextChars = n
		}
	}
}

// WithConcurrency bounds the number of outstanding judge requests. The
// default of 1 validates entities strictly one after another.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithTokenCounter records prompt sizes in the validations map
func WithTokenCounter(c TokenCounter) Option {
	return func(v *Validator) {
		v.tokens = c
	}
}

// New creates a validator backed by judge
func New(judge Judge, opts ...Option) *Validator {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	v := &Validator{
		judge:        judge,
		logger:       logger,
		timeout:      DefaultTimeout,
		threshold:    DefaultThreshold,
		contextChars: DefaultContextChars,
		concurrency:  1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Outcome holds the two lists produced by validation
type Outcome struct {
	Validated      []pii.DetectedEntity
	FalsePositives []pii.FalsePositive
}

type entityOutcome struct {
	entity        pii.DetectedEntity
	falsePositive *pii.FalsePositive
}

// Validate reviews every entity against documentText. Judge failures never
// abort the batch; they score the entity 0 for that call. Both output lists
// keep the input order.
func (v *Validator) Validate(ctx context.Context, entities []pii.DetectedEntity, documentText string) Outcome {
	contextText := BuildContext(documentText, v.contextChars)
	results := make([]entityOutcome, len(entities))

	if v.concurrency <= 1 {
		for i := range entities {
			results[i] = v.validateOne(ctx, entities[i], contextText)
		}
	} else {
		sem := make(chan struct{}, v.concurrency)
		var wg sync.WaitGroup
		for i := range entities {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[idx] = v.validateOne(ctx, entities[idx], contextText)
			}(i)
		}
		wg.Wait()
	}

	out := Outcome{
		Validated:      make([]pii.DetectedEntity, 0, len(entities)),
		FalsePositives: make([]pii.FalsePositive, 0),
	}
	for _, r := range results {
		if r.falsePositive != nil {
			out.FalsePositives = append(out.FalsePositives, *r.falsePositive)
			continue
		}
		out.Validated = append(out.Validated, r.entity)
	}

	v.logger.WithFields(logrus.Fields{
		"validated":       len(out.Validated),
		"false_positives": len(out.FalsePositives),
	}).Info("Contextual validation completed")
	return out
}

// ValidateResult validates result.Entities in place and appends demoted
// entities to result.FalsePositives.
func (v *Validator) ValidateResult(ctx context.Context, result *pii.Result, documentText string) {
	outcome := v.Validate(ctx, result.Entities, documentText)
	result.Entities = outcome.Validated
	result.FalsePositives = append(result.FalsePositives, outcome.FalsePositives...)
	result.Summarize()
}

func (v *Validator) validateOne(ctx context.Context, entity pii.DetectedEntity, contextText string) entityOutcome {
	entity.Validations = copyValidations(entity.Validations)
	originalType := entity.Type
	preConfidence := entity.Confidence

	metrics.ValidationsInFlight.Inc()
	start := time.Now()

	prompt := BuildPrompt(entity, contextText)
	if v.tokens != nil {
		n := v.tokens.Count(prompt)
		entity.Validations["llm_prompt_tokens"] = n
		metrics.ValidationPromptTokens.Add(float64(n))
	}

	verdict, err := v.request(ctx, prompt)
	metrics.ValidationsInFlight.Dec()

	logger := v.logger.WithFields(logrus.Fields{
		"entity_type": entity.Type,
		"method":      entity.Method,
		"span_ids":    entity.SpanIDs,
	})

	if err != nil {
		kind := errorKind(err)
		logger.WithError(err).WithField("outcome", kind).Warn("Contextual validation failed, scoring 0")
		entity.Validations["llm_error"] = kind
		verdict = Verdict{}
	} else {
		v.applyCorrections(&entity, verdict, logger)
	}

	entity.Validations["llm_contextual_score"] = verdict.Confidence
	entity.Validations["pre_validation_confidence"] = preConfidence
	entity.Confidence = (preConfidence + verdict.Confidence) / 2

	switch entity.Method {
	case pii.MethodRule, pii.MethodNER:
		entity.Method = pii.MethodHybrid
	default:
		entity.Method = pii.MethodLLM
	}

	outcome := "kept"
	var fp *pii.FalsePositive
	if verdict.Confidence < v.threshold {
		outcome = "false_positive"
		fp = &pii.FalsePositive{
			Type:          originalType,
			Reason:        FalsePositiveReason,
			RedactedValue: entity.RedactedValue,
			Confidence:    entity.Confidence,
			SpanIDs:       entity.SpanIDs,
		}
	}
	if err != nil {
		outcome = errorKind(err)
	}

	metrics.ValidationOutcomes.WithLabelValues(outcome).Inc()
	metrics.ValidationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	logger.WithFields(logrus.Fields{
		"outcome":    outcome,
		"confidence": entity.Confidence,
	}).Debug("Entity validated")

	return entityOutcome{entity: entity, falsePositive: fp}
}

// request runs one judge call bounded by the validator timeout. The call
// is abandoned on timeout even if the judge ignores its context.
func (v *Validator) request(ctx context.Context, prompt string) (Verdict, error) {
	if v.judge == nil {
		return Verdict{}, errors.Wrap(ErrTransport, "no judge configured")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type reply struct {
		raw string
		err error
	}
	replies := make(chan reply, 1)
	go func() {
		raw, err := v.judge.Judge(ctx, prompt)
		replies <- reply{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return Verdict{}, errors.Wrapf(ErrCanceled, "%v", ctx.Err())
		}
		return Verdict{}, errors.Wrapf(ErrTimeout, "no answer within %s: %v", v.timeout, ctx.Err())
	case r := <-replies:
		if r.err != nil {
			switch {
			case errors.Is(r.err, context.DeadlineExceeded):
				return Verdict{}, errors.Wrapf(ErrTimeout, "%v", r.err)
			case errors.Is(r.err, context.Canceled):
				return Verdict{}, errors.Wrapf(ErrCanceled, "%v", r.err)
			}
			return Verdict{}, errors.Wrapf(ErrTransport, "%v", r.err)
		}
		return ParseVerdict(r.raw)
	}
}

func (v *Validator) applyCorrections(entity *pii.DetectedEntity, verdict Verdict, logger *logrus.Entry) {
	remask := false

	if verdict.CorrectedType != "" {
		corrected, ok := pii.ParseEntityType(verdict.CorrectedType)
		switch {
		case !ok:
			entity.Validations[pii.ValidationTypeCorrectionRejected] = verdict.CorrectedType
			logger.WithField("corrected_type", verdict.CorrectedType).Debug("Ignoring non-canonical type correction")
		case corrected != entity.Type:
			entity.Validations["llm_type_correction"] = map[string]interface{}{
				"from": string(entity.Type),
				"to":   string(corrected),
			}
			logger.WithField("corrected_type", corrected).Info("Applied type correction")
			entity.Type = corrected
			remask = true
		}
	}

	if verdict.CorrectedValue != "" && verdict.CorrectedValue != entity.Value {
		entity.Validations[pii.ValidationValueCorrection] = map[string]interface{}{
			"previous_redacted": entity.RedactedValue,
			"delta":             valueDelta(entity.Value, verdict.CorrectedValue),
		}
		entity.Value = verdict.CorrectedValue
		remask = true
		logger.Info("Applied value correction")
	}

	if remask {
		entity.RedactedValue = pii.Mask(entity.Value, entity.Type)
	}
}

// valueDelta encodes the edit from before to after in diff-match-patch
// delta form.
func valueDelta(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffToDelta(diffs)
}

// BuildContext bounds the document text passed to the judge
func BuildContext(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}

// BuildPrompt renders the judge prompt for one entity
func BuildPrompt(entity pii.DetectedEntity, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, entity.Value, entity.Type)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}

func copyValidations(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	return out
}
