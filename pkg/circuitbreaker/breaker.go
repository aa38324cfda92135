// Package circuitbreaker wraps gobreaker for calls to optional dependencies.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrOpen is returned instead of calling through while the breaker is open or
// while the half-open probe quota is used up.
var ErrOpen = errors.New("circuit breaker open")

type Settings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

func DefaultSettings(name string) Settings {
	return Settings{Name: name, ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func New[T any](s Settings, logger *zap.Logger) *Breaker[T] {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}
	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:    s.Name,
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Breaker[T]{cb: cb}
}

func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return v, ErrOpen
	}
	return v, err
}

func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
