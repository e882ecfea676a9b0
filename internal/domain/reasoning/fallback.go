package reasoning

import (
	"context"

	"github.com/okian/artemis/pkg/logger"
	"github.com/okian/artemis/pkg/metrics"
)

const neutralFeedback = "Thanks for explaining your thinking! Keep looking closely at the evidence."

// Fallback tries each estimator in order and settles on NeutralScore when
// all of them fail. It never returns an error.
type Fallback struct {
	chain []Estimator
	log   logger.Logger
}

// NewFallback builds a chain. Nil estimators are skipped.
func NewFallback(log logger.Logger, chain ...Estimator) *Fallback {
	if log == nil {
		log = logger.Nop()
	}
	f := &Fallback{log: log}
	for _, e := range chain {
		if e != nil {
			f.chain = append(f.chain, e)
		}
	}
	return f
}

// Evaluate returns the first successful assessment with its score clamped.
func (f *Fallback) Evaluate(ctx context.Context, req Request) (Assessment, error) {
	for i, e := range f.chain {
		a, err := e.Evaluate(ctx, req)
		if err == nil {
			a.Score = clamp(a.Score)
			if i > 0 {
				metrics.RecordEstimatorFallback()
			}
			metrics.RecordEstimatorCall(a.Source)
			return a, nil
		}
		f.log.Warn(ctx, "reasoning estimator failed", logger.Int("position", i), logger.Error(err))
	}
	metrics.RecordEstimatorFallback()
	metrics.RecordEstimatorCall(SourceNeutral)
	return Assessment{Score: NeutralScore, Feedback: neutralFeedback, Source: SourceNeutral}, nil
}
