package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aihub/campus-companion/internal/campus"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/knowledge"
	"github.com/aihub/campus-companion/internal/metrics"
	"github.com/aihub/campus-companion/internal/routing"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "attendance") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}
func (staticEmbedder) Dimensions() int   { return 2 }
func (staticEmbedder) ModelName() string { return "mini" }
func (staticEmbedder) Ready() bool       { return true }

// classificationView 响应里的分类结果，层级按名称读取
type classificationView struct {
	Primary         intent.Score `json:"primary"`
	MultiIntent     bool         `json:"multi_intent"`
	NeedsFallback   bool         `json:"needs_fallback"`
	Provenance      []string     `json:"provenance"`
	SemanticInvoked bool         `json:"semantic_invoked"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestDependencies(t *testing.T, withKnowledge bool) Dependencies {
	t.Helper()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	keywords, err := intent.NewKeywordMatcher(intent.DefaultKeywordRules())
	require.NoError(t, err)
	engine, err := intent.NewEngine(intent.DefaultPolicy(), []intent.Matcher{keywords}, nil, collector)
	require.NoError(t, err)

	orchestrator, err := routing.NewOrchestrator(engine, map[intent.Intent]routing.DataHandler{
		intent.SmallTalk: campus.NewSmallTalkHandler(),
	}, campus.NewFallbackResponder(nil, 0, 0, nil), routing.OrchestratorOptions{Metrics: collector})
	require.NoError(t, err)

	deps := Dependencies{
		Name:           "campus-companion",
		Version:        "test",
		AllowedOrigins: []string{"http://localhost:5173"},
		Gatherer:       registry,
		Orchestrator:   orchestrator,
		Classifier:     engine,
	}

	if withKnowledge {
		chunks := []knowledge.DocumentChunk{
			{ID: "att-1", DocumentID: "handbook", Content: "Minimum attendance is 75 percent.", Embedding: []float32{1, 0}, Sequence: 0},
			{ID: "fee-1", DocumentID: "handbook", Content: "Fees are due in July.", Embedding: []float32{0, 1}, Sequence: 1},
		}
		idx, err := knowledge.NewMemoryIndex(knowledge.IndexInfo{Model: "mini", Dimensions: 2}, chunks)
		require.NoError(t, err)
		deps.Retrieval, err = knowledge.NewRetrievalEngine(staticEmbedder{}, idx, knowledge.NewMemoryChunkStore(chunks),
			knowledge.DefaultRetrievalOptions(), nil, collector)
		require.NoError(t, err)
	}
	return deps
}

func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	server := web.NewHttpServerWithCfg(web.BConfig)
	Register(server, deps)
	return server.Handlers
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestChat(t *testing.T) {
	h := newTestServer(t, newTestDependencies(t, false))

	t.Run("small talk", func(t *testing.T) {
		rec, env := do(t, h, http.MethodPost, "/api/chat", `{"query":"hello there"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, env.Success)

		var answer routing.Answer
		require.NoError(t, json.Unmarshal(env.Data, &answer))
		assert.Equal(t, intent.SmallTalk, answer.Intent)
		assert.False(t, answer.UsedFallback)
		assert.Contains(t, answer.Payload.Text, "Campus Companion")
		assert.Nil(t, answer.Payload.Classification)
	})

	t.Run("empty query gets a prompt", func(t *testing.T) {
		rec, env := do(t, h, http.MethodPost, "/api/chat", `{"query":"  "}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var answer routing.Answer
		require.NoError(t, json.Unmarshal(env.Data, &answer))
		assert.Equal(t, intent.Fallback, answer.Intent)
		assert.True(t, answer.UsedFallback)
		assert.Equal(t, campus.EmptyQueryMessage, answer.Payload.Text)
	})

	t.Run("diagnostics", func(t *testing.T) {
		_, env := do(t, h, http.MethodPost, "/api/chat", `{"query":"thanks","diagnostics":true}`)

		var answer struct {
			Payload struct {
				Classification *classificationView `json:"classification"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &answer))
		require.NotNil(t, answer.Payload.Classification)
		assert.Equal(t, intent.SmallTalk, answer.Payload.Classification.Primary.Intent)
		assert.Equal(t, []string{"keyword"}, answer.Payload.Classification.Provenance)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec, env := do(t, h, http.MethodPost, "/api/chat", `{"query":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Error)
	})
}

func TestClassify(t *testing.T) {
	h := newTestServer(t, newTestDependencies(t, false))

	rec, env := do(t, h, http.MethodPost, "/api/classify", `{"query":"Where is the library located?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result classificationView
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, intent.LocationLookup, result.Primary.Intent)
	assert.InDelta(t, 0.8, result.Primary.Confidence, 1e-9)
	assert.False(t, result.SemanticInvoked)
}

func TestKnowledgeSearch(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newTestServer(t, newTestDependencies(t, false))
		rec, env := do(t, h, http.MethodGet, "/api/knowledge/search?q=attendance", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.False(t, env.Success)
	})

	h := newTestServer(t, newTestDependencies(t, true))

	t.Run("ranked passages", func(t *testing.T) {
		rec, env := do(t, h, http.MethodGet, "/api/knowledge/search?q=attendance+rules&top_k=2&min_score=0.5", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Passages []knowledge.RetrievedPassage `json:"passages"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &body))
		require.Len(t, body.Passages, 1)
		assert.Equal(t, "att-1", body.Passages[0].Chunk.ID)
		assert.InDelta(t, 1.0, body.Passages[0].Score, 1e-6)
	})

	t.Run("missing query", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/knowledge/search", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad parameters", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/knowledge/search?q=fees&top_k=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec, _ = do(t, h, http.MethodGet, "/api/knowledge/search?q=fees&min_score=2", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, newTestDependencies(t, true))

	rec, env := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","knowledge":true}`, string(env.Data))

	do(t, h, http.MethodPost, "/api/chat", `{"query":"hi"}`)

	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campus_classifications_total")
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, newTestDependencies(t, false))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
