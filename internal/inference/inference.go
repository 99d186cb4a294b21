// Package inference invokes language-model backends to turn an
// extraction instruction into raw JSON text. Backends are organized in
// tiers; the chain walks them in order, retrying transient failures
// within a tier before escalating to the next.
package inference

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/pagelens/internal/config"
	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/resilience"
	"github.com/sells-group/pagelens/pkg/anthropic"
)

// ErrUnavailable reports that every configured backend was exhausted.
// The pipeline degrades to pattern-only extraction when it sees this.
var ErrUnavailable = errors.New("inference: no backend produced a response")

// Backend is a single language-model endpoint.
type Backend interface {
	// Name identifies the backend in logs and attempt records.
	Name() string
	// Tier places the backend in the escalation order.
	Tier() model.BackendTier
	// Available reports whether the backend has the credentials or
	// endpoint it needs. Unavailable backends are skipped silently.
	Available() bool
	// Infer sends the instruction and returns the model's raw text.
	Infer(ctx context.Context, instruction string) (string, error)
}

// Chain escalates through backends tier by tier.
type Chain struct {
	backends []Backend
	retry    resilience.RetryConfig
}

// NewChain builds the backend list from configuration, in tier order.
func NewChain(cfg config.InferenceConfig) *Chain {
	var backends []Backend

	backends = append(backends, NewLocal(cfg.LocalEndpoint, cfg.LocalModel))

	if cfg.AnthropicKey != "" {
		backends = append(backends,
			NewAnthropic(anthropic.NewClient(cfg.AnthropicKey), cfg.AnthropicModel, cfg.RatePerSecond))
	} else {
		backends = append(backends, &Anthropic{})
	}

	backends = append(backends, NewMistral(cfg.MistralKey, cfg.MistralModel, cfg.RatePerSecond))

	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.BackoffMs) * time.Millisecond
	}

	return &Chain{backends: backends, retry: retry}
}

// NewChainWith builds a chain over explicit backends, mainly for tests.
func NewChainWith(retry resilience.RetryConfig, backends ...Backend) *Chain {
	return &Chain{backends: backends, retry: retry}
}

// Run walks the tiers until one produces a response. Every tier that was
// actually invoked gets an attempt record, including its retry count and
// elapsed time, whether it succeeded or not. When all tiers fail the
// returned error wraps ErrUnavailable.
func (c *Chain) Run(ctx context.Context, instruction string) (string, []model.InferenceAttempt, error) {
	var attempts []model.InferenceAttempt

	for _, b := range c.backends {
		if !b.Available() {
			continue
		}

		retry := c.retry
		retry.OnRetry = resilience.RetryLogger(b.Name(), "infer")

		start := time.Now()
		raw, tries, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
			return b.Infer(ctx, instruction)
		})
		elapsed := time.Since(start).Milliseconds()

		attempt := model.InferenceAttempt{
			Backend:    b.Name(),
			Tier:       b.Tier(),
			Prompt:     instruction,
			Succeeded:  err == nil,
			RetryCount: tries - 1,
			ElapsedMs:  elapsed,
		}
		if err == nil {
			attempt.RawResponse = raw
			attempts = append(attempts, attempt)
			zap.L().Info("inference: backend succeeded",
				zap.String("backend", b.Name()),
				zap.String("tier", string(b.Tier())),
				zap.Int("retries", attempt.RetryCount),
				zap.Int64("elapsed_ms", elapsed),
			)
			return raw, attempts, nil
		}

		attempts = append(attempts, attempt)
		zap.L().Warn("inference: backend exhausted, escalating",
			zap.String("backend", b.Name()),
			zap.String("tier", string(b.Tier())),
			zap.Int("retries", attempt.RetryCount),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return "", attempts, ctx.Err()
		}
	}

	return "", attempts, ErrUnavailable
}
