package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedder_NoKey(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIEmbedderOptions{Model: "all-MiniLM-L6-v2"})
	assert.False(t, e.Ready())
	_, err := e.Embed(context.Background(), "cgpa")
	assert.Error(t, err)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"all-MiniLM-L6-v2","data":[{"object":"embedding","index":0,"embedding":[0.25,0.5,0.75]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderOptions{APIKey: "k", BaseURL: srv.URL + "/v1/", Model: "all-MiniLM-L6-v2"})
	require.True(t, e.Ready())
	assert.Equal(t, 384, e.Dimensions())

	vec, err := e.Embed(context.Background(), "how is cgpa calculated")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, vec)
	assert.Equal(t, "all-MiniLM-L6-v2", gotModel)
}

func TestWithLRUCache(t *testing.T) {
	inner := queryEmbedder()
	cached := WithLRUCache(inner, 8, time.Minute)

	first, err := cached.Embed(context.Background(), "how is cgpa calculated")
	require.NoError(t, err)
	first[0] = 42

	second, err := cached.Embed(context.Background(), "how is cgpa calculated")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, second)
	assert.Equal(t, 1, inner.calls)

	_, err = cached.Embed(context.Background(), "unrelated")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
}

func TestWithLRUCache_Disabled(t *testing.T) {
	inner := queryEmbedder()
	assert.Same(t, Embedder(inner), WithLRUCache(inner, 0, time.Minute))
}
