package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/pkg/circuitbreaker"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/pkg/logger"
)

// Guarded bounds a scorer with a timeout and a circuit breaker. It never returns an error.
type Guarded struct {
	next    Scorer
	timeout time.Duration
	breaker *circuitbreaker.Breaker[[]string]
	logger  *zap.Logger
}

func NewGuarded(next Scorer, timeout time.Duration, log *zap.Logger) *Guarded {
	return &Guarded{
		next:    next,
		timeout: timeout,
		breaker: circuitbreaker.New[[]string](circuitbreaker.DefaultSettings("recommendations"), log),
		logger:  log,
	}
}

func (g *Guarded) Recommend(ctx context.Context, skus []string, topN int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.breaker.Execute(func() ([]string, error) {
		return g.next.Recommend(ctx, skus, topN)
	})
	if err != nil {
		logger.WithTrace(ctx, g.logger).Warn("recommendations unavailable",
			zap.Strings("skus", skus),
			zap.Error(err))
		return []string{}, nil
	}
	return out, nil
}
