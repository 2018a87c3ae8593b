package hosting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/westmount/faxbridge/internal/document"
	"github.com/westmount/faxbridge/pkg/circuitbreaker"
)

// DefaultAttemptTimeout bounds each provider attempt so one stalled host
// cannot stall the whole submission
const DefaultAttemptTimeout = 30 * time.Second

// Chain tries providers in order and returns the first successful
// reference. Each provider sits behind its own circuit breaker so a host
// that keeps failing is skipped without waiting out its timeout.
type Chain struct {
	providers []Provider
	breakers  *circuitbreaker.Manager
	timeout   time.Duration
	logger    *zap.Logger
}

// NewChain creates a fallback chain over the given providers
func NewChain(providers []Provider, breakers *circuitbreaker.Manager, timeout time.Duration, logger *zap.Logger) *Chain {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		providers: providers,
		breakers:  breakers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Name identifies the strategy
func (c *Chain) Name() string { return "fallback-chain" }

// Publish walks the provider list in declared order. A failure of any kind,
// network error, non-success status, malformed response or open breaker,
// moves on to the next provider; only when every provider has failed does
// the caller see a PublishError aggregating each reason.
func (c *Chain) Publish(ctx context.Context, doc *document.Document) (*Reference, error) {
	perr := &PublishError{}

	for _, provider := range c.providers {
		ref, err := c.tryProvider(ctx, provider, doc)
		if err == nil {
			c.logger.Info("document published",
				zap.String("service", provider.Name()),
				zap.String("document_id", doc.ID),
				zap.String("url", ref.URL))
			return ref, nil
		}

		c.logger.Warn("hosting provider failed",
			zap.String("service", provider.Name()),
			zap.String("document_id", doc.ID),
			zap.Error(err))
		perr.Attempts = append(perr.Attempts, Attempt{Service: provider.Name(), Err: err})
	}

	return nil, perr
}

func (c *Chain) tryProvider(ctx context.Context, provider Provider, doc *document.Document) (*Reference, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	breaker, err := c.breakers.GetOrCreate(provider.Name(), circuitbreaker.DefaultConfig(provider.Name()))
	if err != nil {
		return nil, err
	}

	result, err := breaker.Execute(attemptCtx, func() (interface{}, error) {
		return provider.Upload(attemptCtx, doc)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Reference), nil
}
