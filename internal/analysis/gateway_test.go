package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SymptomAI/symptom-ai/internal/platform/openai"
)

// countingClient fails every call and counts them, for asserting that certain
// paths never reach the network.
type countingClient struct {
	completions int
	listings    int
}

func (c *countingClient) ChatCompletion(_ context.Context, _, _, _, _ string, _ float64, _ int) (string, error) {
	c.completions++
	return "", assert.AnError
}

func (c *countingClient) ListModels(_ context.Context, _ string) (openai.ModelList, error) {
	c.listings++
	return openai.ModelList{}, assert.AnError
}

func TestAnalyzeEmptyInputNoNetworkCall(t *testing.T) {
	client := &countingClient{}
	g := NewGateway(client, "sk-test", "gpt-4o", zap.NewNop())

	_, err := g.Analyze(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptySymptoms)
	assert.Zero(t, client.completions)
}

func TestAnalyzeWithoutKeySkipsProvider(t *testing.T) {
	client := &countingClient{}
	g := NewGateway(client, "", "gpt-4o", zap.NewNop())

	result, err := g.Analyze(context.Background(), "sore throat", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Conditions)
	assert.Zero(t, client.completions)
}

func TestAnalyzeFallbackFeverScenario(t *testing.T) {
	g := NewGateway(&countingClient{}, "", "gpt-4o", zap.NewNop())

	result, err := g.Analyze(context.Background(), "I have a runny nose and mild fever", "")
	require.NoError(t, err)

	require.NotEmpty(t, result.Conditions)
	first := result.Conditions[0]
	assert.Equal(t, "Possible Common Cold or Viral Infection", first.Name)
	assert.Equal(t, "85%", first.Likelihood)
	assert.Equal(t, SeverityLow, first.Severity)
	assert.Equal(t, "Expected recovery within 7-10 days with fever management", result.Timeline)
	assert.Equal(t, "Estimated cost of OTC medications: $10-20", result.EstimatedCost)
	assert.Equal(t, []string{"Decongestants", "Pain relievers (Acetaminophen or Ibuprofen)"}, result.OTCMedications)
	assert.Equal(t, []string{"Rest", "Hydration", "Warm tea with honey"}, result.HomeRemedies)
}

func TestAnalyzeFallbackKeywordPrepends(t *testing.T) {
	g := NewGateway(&countingClient{}, "", "gpt-4o", zap.NewNop())

	result, err := g.Analyze(context.Background(), "bad headache since morning", "")
	require.NoError(t, err)
	require.Len(t, result.Conditions, 2)
	assert.Equal(t, "Tension Headache or Migraine", result.Conditions[0].Name)

	result, err = g.Analyze(context.Background(), "my stomach hurts", "")
	require.NoError(t, err)
	require.Len(t, result.Conditions, 2)
	assert.Equal(t, "Gastroenteritis or Indigestion", result.Conditions[0].Name)

	// Rules apply independently; stomach is checked last, so it wins the front.
	result, err = g.Analyze(context.Background(), "Headache and stomach pain with fever", "")
	require.NoError(t, err)
	require.Len(t, result.Conditions, 3)
	assert.Equal(t, "Gastroenteritis or Indigestion", result.Conditions[0].Name)
	assert.Equal(t, "Tension Headache or Migraine", result.Conditions[1].Name)
	assert.Equal(t, "85%", result.Conditions[2].Likelihood)
}

func providerGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := openai.NewClient(server.URL, 2*time.Second)
	return NewGateway(client, "sk-test", "gpt-4o", zap.NewNop())
}

func TestAnalyzeProviderNetworkErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on
	client := openai.NewClient(server.URL, time.Second)
	g := NewGateway(client, "sk-test", "gpt-4o", zap.NewNop())

	result, err := g.Analyze(context.Background(), "cough", "")
	require.NoError(t, err)
	assert.Equal(t, "Possible Common Cold or Viral Infection", result.Conditions[0].Name)
}

func TestAnalyzeCancelledContextAbortsWithoutFallback(t *testing.T) {
	// Provider hangs until the caller gives up.
	g := providerGateway(t, func(_ http.ResponseWriter, r *http.Request) {
		// The server only watches for client disconnect (and cancels
		// r.Context()) once the request body has been consumed.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := g.Analyze(ctx, "cough", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Conditions, "an abandoned request must not get a fabricated result")
}

func TestAnalyzeProviderErrorStatusFallsBack(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	result, err := g.Analyze(context.Background(), "cough", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Conditions)
}

func TestAnalyzeProviderNonJSONBodyFallsBack(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	result, err := g.Analyze(context.Background(), "cough", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Conditions)
}

func TestAnalyzeMalformedModelOutputFallsBack(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "I think you have a cold."}},
			},
		})
	})

	result, err := g.Analyze(context.Background(), "cough", "")
	require.NoError(t, err)
	assert.Equal(t, "Possible Common Cold or Viral Infection", result.Conditions[0].Name)
}

func TestAnalyzeParsesWellFormedModelOutput(t *testing.T) {
	payload := Result{
		Conditions: []Condition{{
			Name:        "Seasonal Allergies",
			Likelihood:  "80%",
			Description: "Pollen season.",
			Severity:    SeverityLow,
		}},
		OTCMedications: []string{"Antihistamines"},
		Timeline:       "2-4 weeks",
		EstimatedCost:  "$15",
	}
	content, err := json.Marshal(payload)
	require.NoError(t, err)

	g := providerGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(content)}},
			},
		})
	})

	result, err := g.Analyze(context.Background(), "sneezing a lot", "")
	require.NoError(t, err)
	assert.Equal(t, "Seasonal Allergies", result.Conditions[0].Name)
	assert.Equal(t, []string{"Antihistamines"}, result.OTCMedications)
}

func TestAnalyzeEmptyConditionsGetPlaceholder(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "{}"}},
			},
		})
	})

	result, err := g.Analyze(context.Background(), "vague discomfort", "")
	require.NoError(t, err)
	require.Len(t, result.Conditions, 1)
	assert.Contains(t, result.Conditions[0].Description, "healthcare professional")
}

func TestVerifyKeyMalformedFormatNoNetworkCall(t *testing.T) {
	client := &countingClient{}
	g := NewGateway(client, "", "gpt-4o", zap.NewNop())

	status := g.VerifyKey(context.Background(), "not-a-key")
	assert.False(t, status.Valid)
	assert.Contains(t, status.Error, "start with 'sk-'")
	assert.Zero(t, client.listings)
}

func TestVerifyKeyStatusClasses(t *testing.T) {
	cases := []struct {
		status  int
		message string
	}{
		{http.StatusUnauthorized, "Invalid API key or insufficient permissions"},
		{http.StatusTooManyRequests, "API key rate limit exceeded"},
		{http.StatusForbidden, "API key access denied"},
		{http.StatusBadGateway, "Invalid API key"},
	}

	for _, tc := range cases {
		g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "denied", tc.status)
		})
		status := g.VerifyKey(context.Background(), "sk-candidate")
		assert.False(t, status.Valid)
		assert.Equal(t, tc.message, status.Error)
	}
}

func TestVerifyKeyCarriesProviderErrorDetails(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "Incorrect API key provided"},
		})
	})

	status := g.VerifyKey(context.Background(), "sk-candidate")
	assert.False(t, status.Valid)
	assert.Equal(t, "Invalid API key or insufficient permissions", status.Error)
	assert.Equal(t, "Incorrect API key provided", status.Details)
}

func TestVerifyKeyReportsModelAccess(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "gpt-4o"},
				{"id": "text-embedding-3-small"},
			},
		})
	})

	status := g.VerifyKey(context.Background(), "sk-candidate")
	assert.True(t, status.Valid)
	assert.Equal(t, "API key is valid with GPT model access", status.Message)
	assert.Equal(t, 2, status.ModelCount)
}

func TestVerifyKeyLimitedModelAccess(t *testing.T) {
	g := providerGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "whisper-1"}},
		})
	})

	status := g.VerifyKey(context.Background(), "sk-candidate")
	assert.True(t, status.Valid)
	assert.Equal(t, "API key is valid but may have limited model access", status.Message)
	assert.Equal(t, 1, status.ModelCount)
}
