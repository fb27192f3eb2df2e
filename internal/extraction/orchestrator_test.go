package extraction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structured-trts/sentenca/internal/domain"
	"github.com/structured-trts/sentenca/internal/ports"
	"github.com/structured-trts/sentenca/internal/testutils"
)

var testVocab = []string{
	"(13769) Horas Extras",
	"(13719) FGTS",
	"(14033) Indenização por Dano Moral",
}

const validResponse = `{"decision_type": "merito", "claims": [{"claim_type": "(13769) Horas Extras", "outcome": "procedente", "reflexos": "sim"}]}`

func newTestValidator(t *testing.T) *domain.Validator {
	t.Helper()
	vocab, err := domain.NewVocabulary(testVocab)
	require.NoError(t, err)
	v, err := domain.NewValidator(vocab)
	require.NoError(t, err)
	return v
}

func newTestRenderer(t *testing.T) *PromptRenderer {
	t.Helper()
	r, err := NewPromptRenderer(DefaultPromptTemplate)
	require.NoError(t, err)
	return r
}

func newTestOrchestrator(t *testing.T, models ...Model) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(models, newTestRenderer(t), newTestValidator(t), nil)
	require.NoError(t, err)
	return o
}

func testTask(docID, model string) domain.ExtractionTask {
	return domain.ExtractionTask{
		DocumentID:   docID,
		DocumentText: "Vistos etc. Julgo PROCEDENTE o pedido de horas extras.",
		ModelName:    model,
	}
}

// capturingMetrics records counter emissions for assertion.
type capturingMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	outcomes []string
}

func newCapturingMetrics() *capturingMetrics {
	return &capturingMetrics{counters: make(map[string]float64)}
}

func (m *capturingMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (m *capturingMetrics) RecordGauge(string, float64, map[string]string)         {}
func (m *capturingMetrics) RecordHistogram(string, float64, map[string]string)     {}

func (m *capturingMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric] += value
	if outcome, ok := labels["outcome"]; ok {
		m.outcomes = append(m.outcomes, outcome)
	}
}

func TestNewOrchestrator_Validation(t *testing.T) {
	renderer := newTestRenderer(t)
	validator := newTestValidator(t)
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini")

	tests := []struct {
		name      string
		models    []Model
		renderer  *PromptRenderer
		validator *domain.Validator
		wantErr   string
	}{
		{
			name:      "no models",
			models:    nil,
			renderer:  renderer,
			validator: validator,
			wantErr:   "at least one model",
		},
		{
			name:      "nil renderer",
			models:    []Model{{Name: "a", Provider: "openai", Client: client}},
			validator: validator,
			wantErr:   "renderer cannot be nil",
		},
		{
			name:     "nil validator",
			models:   []Model{{Name: "a", Provider: "openai", Client: client}},
			renderer: renderer,
			wantErr:  "validator cannot be nil",
		},
		{
			name:      "empty model name",
			models:    []Model{{Provider: "openai", Client: client}},
			renderer:  renderer,
			validator: validator,
			wantErr:   "model name cannot be empty",
		},
		{
			name:      "nil client",
			models:    []Model{{Name: "a", Provider: "openai"}},
			renderer:  renderer,
			validator: validator,
			wantErr:   "has no client",
		},
		{
			name: "duplicate model name",
			models: []Model{
				{Name: "a", Provider: "openai", Client: client},
				{Name: "a", Provider: "groq", Client: client},
			},
			renderer:  renderer,
			validator: validator,
			wantErr:   "duplicate model name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrchestrator(tt.models, tt.renderer, tt.validator, nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOrchestrator_SuccessfulExtraction(t *testing.T) {
	// Given a model that answers with a fenced JSON object and prose
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini", testutils.ScriptedResponse{
		Text:      "Segue a extração:\n```json\n" + validResponse + "\n```",
		TokensIn:  321,
		TokensOut: 87,
	})
	orch := newTestOrchestrator(t, Model{Name: "gpt-4o-mini", Provider: "openai", Client: client})

	// When the task runs
	res := orch.Run(context.Background(), testTask("doc-1", "gpt-4o-mini"))

	// Then a validated record is produced with token accounting
	assert.True(t, res.Success)
	assert.Equal(t, "doc-1/gpt-4o-mini", res.TaskID)
	assert.Equal(t, "doc-1", res.DocumentID)
	assert.Equal(t, "gpt-4o-mini", res.ModelName)
	assert.Equal(t, "openai", res.Provider)
	assert.Empty(t, res.ErrorKind)
	assert.Empty(t, res.ErrorMessage)
	assert.Equal(t, 321, res.TokensIn)
	assert.Equal(t, 87, res.TokensOut)
	require.NotNil(t, res.ExtractedData)
	assert.Equal(t, domain.DecisionMerito, res.ExtractedData.DecisionType)
	require.Len(t, res.ExtractedData.Claims, 1)
	assert.Equal(t, "(13769) Horas Extras", res.ExtractedData.Claims[0].ClaimType)
	assert.GreaterOrEqual(t, res.ExtractionTimeSeconds, 0.0)
}

func TestOrchestrator_FailureKinds(t *testing.T) {
	tests := []struct {
		name        string
		response    testutils.ScriptedResponse
		wantKind    string
		wantMessage string
	}{
		{
			name: "rate limited provider error",
			response: testutils.ScriptedResponse{
				Err: ports.NewProviderError(ports.ErrorKindRateLimited, "groq", "llama-3.3-70b-versatile", errors.New("429")),
			},
			wantKind:    "provider:rate_limited",
			wantMessage: "rate_limited",
		},
		{
			name: "timeout provider error",
			response: testutils.ScriptedResponse{
				Err: ports.NewProviderError(ports.ErrorKindTimeout, "groq", "llama-3.3-70b-versatile", context.DeadlineExceeded),
			},
			wantKind:    "provider:timeout",
			wantMessage: "timeout",
		},
		{
			name: "auth provider error",
			response: testutils.ScriptedResponse{
				Err: ports.NewProviderError(ports.ErrorKindAuth, "groq", "llama-3.3-70b-versatile", errors.New("401")),
			},
			wantKind:    "provider:auth",
			wantMessage: "auth",
		},
		{
			name: "unclassified error",
			response: testutils.ScriptedResponse{
				Err: errors.New("connection reset by peer"),
			},
			wantKind:    "provider:unknown",
			wantMessage: "connection reset",
		},
		{
			name: "response without JSON",
			response: testutils.ScriptedResponse{
				Text: "Não foi possível extrair os dados da sentença.",
			},
			wantKind:    domain.ErrorKindParse,
			wantMessage: "valid JSON object",
		},
		{
			name: "truncated JSON",
			response: testutils.ScriptedResponse{
				Text: `{"decision_type": "merito", "claims": [`,
			},
			wantKind:    domain.ErrorKindParse,
			wantMessage: "valid JSON object",
		},
		{
			name: "invalid outcome enum",
			response: testutils.ScriptedResponse{
				Text: `{"decision_type": "merito", "claims": [{"claim_type": "(13769) Horas Extras", "outcome": "ganhou", "reflexos": "sim"}]}`,
			},
			wantKind:    domain.ErrorKindSchema,
			wantMessage: "claims[0].outcome",
		},
		{
			name: "claim outside vocabulary",
			response: testutils.ScriptedResponse{
				Text: `{"decision_type": "merito", "claims": [{"claim_type": "(99999) Pedido Desconhecido", "outcome": "procedente", "reflexos": "nao"}]}`,
			},
			wantKind:    domain.ErrorKindSchema,
			wantMessage: "vocabulary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutils.NewScriptedLLMClient("groq", "llama-3.3-70b-versatile", tt.response)
			orch := newTestOrchestrator(t, Model{Name: "llama-70b", Provider: "groq", Client: client})

			res := orch.Run(context.Background(), testTask("doc-1", "llama-70b"))

			assert.False(t, res.Success)
			assert.Nil(t, res.ExtractedData)
			assert.Equal(t, tt.wantKind, res.ErrorKind)
			assert.Contains(t, res.ErrorMessage, tt.wantMessage)
			assert.GreaterOrEqual(t, res.ExtractionTimeSeconds, 0.0)
		})
	}
}

func TestOrchestrator_UnknownModel(t *testing.T) {
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini")
	orch := newTestOrchestrator(t, Model{Name: "gpt-4o-mini", Provider: "openai", Client: client})

	res := orch.Run(context.Background(), testTask("doc-1", "missing-model"))

	assert.False(t, res.Success)
	assert.Equal(t, "provider:unknown", res.ErrorKind)
	assert.Contains(t, res.ErrorMessage, "not configured")
	assert.Zero(t, client.Calls(), "no call should reach the client")
}

func TestOrchestrator_ResultInvariant(t *testing.T) {
	// Given a mix of successful, failing, and malformed responses
	responses := []testutils.ScriptedResponse{
		{Text: validResponse, TokensIn: 100, TokensOut: 40},
		{Err: ports.NewProviderError(ports.ErrorKindTimeout, "openai", "gpt-4o-mini", context.DeadlineExceeded)},
		{Text: "sem JSON aqui"},
		{Text: `{"decision_type": "inexistente", "claims": []}`},
		{Text: validResponse, TokensIn: 90, TokensOut: 35},
	}
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini", responses...)
	orch := newTestOrchestrator(t, Model{Name: "gpt-4o-mini", Provider: "openai", Client: client})

	// When each response is consumed by a task
	for i := range responses {
		res := orch.Run(context.Background(), testTask("doc", "gpt-4o-mini"))

		// Then success, extracted data, and error kind always agree
		assert.Equal(t, res.Success, res.ExtractedData != nil, "response %d", i)
		assert.Equal(t, res.Success, res.ErrorKind == "", "response %d", i)
		if !res.Success {
			assert.NotEmpty(t, res.ErrorMessage, "response %d", i)
		}
	}
}

func TestOrchestrator_TimingIncludesProviderLatency(t *testing.T) {
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini", testutils.ScriptedResponse{Text: validResponse})
	client.Delay = 30 * time.Millisecond
	orch := newTestOrchestrator(t, Model{Name: "gpt-4o-mini", Provider: "openai", Client: client})

	res := orch.Run(context.Background(), testTask("doc-1", "gpt-4o-mini"))

	assert.True(t, res.Success)
	assert.GreaterOrEqual(t, res.ExtractionTimeSeconds, 0.03)
}

func TestOrchestrator_PromptComposition(t *testing.T) {
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini", testutils.ScriptedResponse{Text: validResponse})
	orch := newTestOrchestrator(t, Model{Name: "gpt-4o-mini", Provider: "openai", Client: client})

	task := domain.ExtractionTask{
		DocumentID:   "doc-1",
		DocumentText: "Condeno a reclamada ao pagamento de horas extras.",
		ModelName:    "gpt-4o-mini",
		Metadata:     map[string]any{"tribunal": "TRT-2"},
	}
	res := orch.Run(context.Background(), task)

	require.True(t, res.Success)
	prompts := client.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Condeno a reclamada ao pagamento de horas extras.")
	assert.Contains(t, prompts[0], `"tribunal"`)
	assert.Contains(t, prompts[0], "TRT-2")
}

func TestOrchestrator_PassesModelOptions(t *testing.T) {
	// Model options must reach the client untouched, on every call.
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini", testutils.ScriptedResponse{Text: validResponse})
	orch := newTestOrchestrator(t, Model{
		Name:     "gpt-4o-mini",
		Provider: "openai",
		Client:   client,
		Options:  map[string]any{"temperature": 0.0, "json_mode": true},
	})

	res := orch.Run(context.Background(), testTask("doc-1", "gpt-4o-mini"))

	assert.True(t, res.Success)
	opts := client.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, 0.0, opts[0]["temperature"])
	assert.Equal(t, true, opts[0]["json_mode"])
}

func TestOrchestrator_EmitsTaskMetrics(t *testing.T) {
	metrics := newCapturingMetrics()
	client := testutils.NewScriptedLLMClient("openai", "gpt-4o-mini",
		testutils.ScriptedResponse{Text: validResponse},
		testutils.ScriptedResponse{Text: "sem JSON"},
	)
	orch, err := NewOrchestrator(
		[]Model{{Name: "gpt-4o-mini", Provider: "openai", Client: client}},
		newTestRenderer(t), newTestValidator(t), metrics,
	)
	require.NoError(t, err)

	orch.Run(context.Background(), testTask("doc-1", "gpt-4o-mini"))
	orch.Run(context.Background(), testTask("doc-2", "gpt-4o-mini"))

	assert.Equal(t, 2.0, metrics.counters["extraction_tasks_total"])
	assert.ElementsMatch(t, []string{"success", domain.ErrorKindParse}, metrics.outcomes)
}
