package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/resilience"
)

const mistralChatEndpoint = "https://api.mistral.ai/v1/chat/completions"

// Mistral is the hosted secondary tier, reached only when the local and
// primary tiers are exhausted.
type Mistral struct {
	apiKey   string
	modelID  string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewMistral creates the hosted-secondary backend. An empty API key
// leaves the backend unavailable.
func NewMistral(apiKey, modelID string, ratePerSecond float64) *Mistral {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Mistral{
		apiKey:   apiKey,
		modelID:  modelID,
		endpoint: mistralChatEndpoint,
		client:   &http.Client{},
		limiter:  limiter,
	}
}

func (m *Mistral) Name() string            { return "mistral" }
func (m *Mistral) Tier() model.BackendTier { return model.TierHostedSecondary }
func (m *Mistral) Available() bool         { return m != nil && m.apiKey != "" }

// Infer posts the instruction to the Mistral chat completions API.
func (m *Mistral) Infer(ctx context.Context, instruction string) (string, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:       m.modelID,
		Messages:    []chatMessage{{Role: "user", Content: instruction}},
		Temperature: 0,
	})
	if err != nil {
		return "", eris.Wrap(err, "inference: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "inference: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "inference: mistral call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "inference: read mistral response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("inference: mistral returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", resilience.NewPermanentError(err, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", eris.Wrap(err, "inference: unmarshal mistral response")
	}
	if len(cr.Choices) == 0 {
		return "", eris.New("inference: mistral returned no choices")
	}

	return cr.Choices[0].Message.Content, nil
}
