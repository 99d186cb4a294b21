package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pagelens/internal/model"
	"github.com/sells-group/pagelens/internal/resilience"
)

// Local talks to a self-hosted OpenAI-compatible completion endpoint
// (llama.cpp server, vLLM, Ollama's compat API). It is the cheapest tier
// and always tried first when an endpoint is configured.
type Local struct {
	endpoint string
	modelID  string
	client   *http.Client
}

// NewLocal creates the local-tier backend. An empty endpoint leaves the
// backend unavailable.
func NewLocal(endpoint, modelID string) *Local {
	return &Local{
		endpoint: endpoint,
		modelID:  modelID,
		client:   &http.Client{},
	}
}

func (l *Local) Name() string            { return "local" }
func (l *Local) Tier() model.BackendTier { return model.TierLocal }
func (l *Local) Available() bool         { return l != nil && l.endpoint != "" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Infer posts the instruction as a single user message.
func (l *Local) Infer(ctx context.Context, instruction string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.modelID,
		Messages:    []chatMessage{{Role: "user", Content: instruction}},
		Temperature: 0,
	})
	if err != nil {
		return "", eris.Wrap(err, "inference: marshal local request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "inference: create local request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "inference: local call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "inference: read local response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("inference: local endpoint returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", resilience.NewPermanentError(err, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", eris.Wrap(err, "inference: unmarshal local response")
	}
	if cr.Error != nil {
		return "", eris.Errorf("inference: local endpoint error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", eris.New("inference: local endpoint returned no choices")
	}

	return cr.Choices[0].Message.Content, nil
}
