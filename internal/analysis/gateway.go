package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/SymptomAI/symptom-ai/internal/platform/openai"
)

// ErrEmptySymptoms is the only error Analyze returns for caller mistakes;
// provider failures are absorbed by the fallback.
var ErrEmptySymptoms = errors.New("symptoms are required")

// CompletionClient is the slice of the OpenAI client the gateway needs.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, apiKey, model, system, user string, temperature float64, maxTokens int) (string, error)
	ListModels(ctx context.Context, apiKey string) (openai.ModelList, error)
}

const systemPrompt = `You are a medical AI assistant. Analyze the symptoms and provide a JSON response with the following structure:
{
  "conditions": [
    {
      "name": "condition name",
      "probability": "percentage",
      "description": "brief description",
      "severity": "low/medium/high"
    }
  ],
  "prescriptions": ["medication1", "medication2"],
  "otc_medications": ["otc1", "otc2"],
  "home_remedies": ["remedy1", "remedy2"],
  "questions": ["question1", "question2"],
  "timeline": "expected recovery time",
  "cost": "estimated treatment cost range"
}

Provide accurate medical information but always recommend consulting healthcare professionals.`

// Gateway produces an analysis for a symptom description: one provider
// attempt when a key is available, deterministic fallback otherwise.
type Gateway struct {
	client CompletionClient
	apiKey string
	model  string
	log    *zap.Logger
}

func NewGateway(client CompletionClient, apiKey, model string, log *zap.Logger) *Gateway {
	if model == "" {
		model = "gpt-4o"
	}
	return &Gateway{client: client, apiKey: apiKey, model: model, log: log}
}

// Analyze returns an analysis for the given symptoms. A request-supplied key
// overrides the configured one. For non-empty input the only error surfaced
// is context cancellation; every provider failure yields the fallback
// instead, so callers never see transport or parse errors.
func (g *Gateway) Analyze(ctx context.Context, symptoms, apiKey string) (Result, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return Result{}, ErrEmptySymptoms
	}

	key := apiKey
	if key == "" {
		key = g.apiKey
	}

	if key != "" {
		r, err := g.fromProvider(ctx, key, symptoms)
		if err == nil {
			return r, nil
		}
		if ctx.Err() != nil {
			// Caller is gone; do not fabricate a fallback it will never see.
			return Result{}, ctx.Err()
		}
		g.log.Warn("provider analysis failed, using fallback", zap.Error(err))
	} else {
		g.log.Info("no api key configured, using fallback analysis")
	}

	return fallbackResult(symptoms), nil
}

func (g *Gateway) fromProvider(ctx context.Context, apiKey, symptoms string) (Result, error) {
	content, err := g.client.ChatCompletion(ctx, apiKey, g.model, systemPrompt,
		"Analyze these symptoms: "+symptoms, 0.7, 1000)
	if err != nil {
		return Result{}, err
	}

	var r Result
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return Result{}, err
	}
	r.Normalize()
	return r, nil
}

// KeyStatus reports the outcome of a credential check. Failure is data, not
// an error: the HTTP layer always answers 200 with this body.
type KeyStatus struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Details    string `json:"details,omitempty"`
	ModelCount int    `json:"modelCount,omitempty"`
}

// VerifyKey checks the candidate key against the models endpoint. It mutates
// no stored state.
func (g *Gateway) VerifyKey(ctx context.Context, apiKey string) KeyStatus {
	if !strings.HasPrefix(apiKey, "sk-") {
		return KeyStatus{Valid: false, Error: "Invalid API key format. OpenAI keys start with 'sk-'"}
	}

	list, err := g.client.ListModels(ctx, apiKey)
	if err != nil {
		var statusErr *openai.StatusError
		if errors.As(err, &statusErr) {
			msg := "Invalid API key"
			switch statusErr.Code {
			case 401:
				msg = "Invalid API key or insufficient permissions"
			case 429:
				msg = "API key rate limit exceeded"
			case 403:
				msg = "API key access denied"
			}
			// The provider's own message rides along for debugging.
			return KeyStatus{Valid: false, Error: msg, Details: statusErr.Message()}
		}
		return KeyStatus{Valid: false, Error: "Failed to test API key. Please check your internet connection."}
	}

	msg := "API key is valid but may have limited model access"
	if list.HasGPT {
		msg = "API key is valid with GPT model access"
	}
	return KeyStatus{Valid: true, Message: msg, ModelCount: list.Count}
}
