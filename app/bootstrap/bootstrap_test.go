package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/campus-companion/internal/errors"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/routing"
)

func TestInit_Defaults(t *testing.T) {
	app, err := Init(Options{LogLevel: "error"})
	require.NoError(t, err)
	defer app.Shutdown()

	assert.NotNil(t, app.Orchestrator)
	assert.NotNil(t, app.Classifier)
	assert.Nil(t, app.Retrieval, "knowledge base is disabled by default")
	assert.Nil(t, app.Health, "database is disabled by default")
	assert.Equal(t, "error", app.Config.Log.Level)

	answer, err := app.Orchestrator.ClassifyAndRoute(context.Background(), "hello", routing.Options{})
	require.NoError(t, err)
	assert.Equal(t, intent.SmallTalk, answer.Intent)
}

func TestInit_InvalidRuleTable(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - intent: not_an_intent\n    confidence: 0.5\n    phrases: [\"x\"]\n"), 0o600))
	t.Setenv("CAMPUS_CLASSIFIER_KEYWORD_RULES_FILE", rules)

	_, err := Init(Options{LogLevel: "error"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigurationError(err))
}

func TestShutdown_NilSafe(t *testing.T) {
	var app *App
	assert.NotPanics(t, app.Shutdown)
}
