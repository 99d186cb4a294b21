package inference

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/time/rate"

	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/resilience"
	"github.com/sells-group/pagelens/pkg/anthropic"
)

const anthropicSystem = "You extract structured product data from noisy page text. " +
	"You respond only with a JSON object, no prose."

// Anthropic is the hosted primary tier. A zero-value Anthropic (no
// client) is a placeholder that reports itself unavailable.
type Anthropic struct {
	client  anthropic.Client
	modelID string
	limiter *rate.Limiter
}

// NewAnthropic creates the hosted-primary backend. ratePerSecond bounds
// outbound request rate; zero or negative disables limiting.
func NewAnthropic(client anthropic.Client, modelID string, ratePerSecond float64) *Anthropic {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Anthropic{client: client, modelID: modelID, limiter: limiter}
}

func (a *Anthropic) Name() string            { return "anthropic" }
func (a *Anthropic) Tier() model.BackendTier { return model.TierHostedPrimary }
func (a *Anthropic) Available() bool         { return a != nil && a.client != nil }

// Infer sends the instruction as a single user message. API errors are
// classified by status so the retry layer treats rate limits as
// transient and rejected credentials as permanent.
func (a *Anthropic) Infer(ctx context.Context, instruction string) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.modelID,
		MaxTokens: 2048,
		System:    anthropicSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: instruction}},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
				return "", resilience.NewTransientError(err, apiErr.StatusCode)
			}
			return "", resilience.NewPermanentError(err, apiErr.StatusCode)
		}
		return "", err
	}

	resp.Usage.LogCost(a.modelID, "extract")
	return resp.Text, nil
}
