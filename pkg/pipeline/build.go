package pipeline

import (
	"github.com/athapong/pii-mcp/pkg/config"
	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/athapong/pii-mcp/pkg/pii/recognizers"
	"github.com/athapong/pii-mcp/pkg/pii/validator"
	"github.com/athapong/pii-mcp/services"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FromConfig wires the detector, recognizers and optional validator
// described by cfg. Validation is left out when disabled.
func FromConfig(cfg *config.Config, logger *logrus.Logger) (*Pipeline, error) {
	types, err := cfg.EntityTypes()
	if err != nil {
		return nil, err
	}
	policy, err := pii.ParseOverlapPolicy(cfg.Detection.OverlapPolicy)
	if err != nil {
		return nil, err
	}

	detector := pii.NewDetector(
		pii.WithLogger(logger),
		pii.WithBatchSize(cfg.Detection.BatchSize),
		pii.WithEntities(types...),
		pii.WithOverlapPolicy(policy),
		pii.WithTightBBoxes(cfg.Detection.TightBBoxes),
	)

	var tagger recognizers.Tagger
	if cfg.Detection.NEREnabled {
		proseTagger, err := recognizers.NewProseTagger()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load NER model")
		}
		tagger = proseTagger
	}
	recognizers.Register(detector, tagger)

	var v *validator.Validator
	if cfg.Validation.Enabled {
		v, err = newValidator(cfg.Validation, logger)
		if err != nil {
			return nil, err
		}
	}

	return New(detector, v, logger), nil
}

func newValidator(cfg config.ValidationConfig, logger *logrus.Logger) (*validator.Validator, error) {
	client, err := services.NewJudgeClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create judge client")
	}

	opts := []validator.Option{
		validator.WithLogger(logger),
		validator.WithTimeout(cfg.Timeout),
		validator.WithThreshold(cfg.Threshold),
		validator.WithContextChars(cfg.ContextChars),
		validator.WithConcurrency(cfg.Concurrency),
	}
	if cfg.CountPromptTokens {
		counter, err := services.NewTokenCounter("cl100k_base")
		if err != nil {
			if logger != nil {
				logger.WithError(err).Warn("Prompt token counting disabled")
			}
		} else {
			opts = append(opts, validator.WithTokenCounter(counter))
		}
	}

	return validator.New(validator.NewOpenAIJudge(client, cfg.Model), opts...), nil
}
