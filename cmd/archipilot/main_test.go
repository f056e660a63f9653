package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enzomar/archipilot/config"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigVaultLocal(t *testing.T) {
	root := t.TempDir()

	saved := config.DefaultConfig()
	saved.Model.Default = "qwen"
	require.NoError(t, saved.SaveToFile(filepath.Join(root, configFileName)))

	cfg, err := loadConfig("", root, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "qwen", cfg.Model.Default)
}

func TestLoadConfigExplicitPathWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, config.DefaultConfig().SaveToFile(filepath.Join(root, configFileName)))

	explicit := config.DefaultConfig()
	explicit.Model.Default = "llama3.2"
	explicitPath := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, explicit.SaveToFile(explicitPath))

	cfg, err := loadConfig(explicitPath, root, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", cfg.Model.Default)
}

func TestResolveVaultPathPrecedence(t *testing.T) {
	flagDir := t.TempDir()
	cfgDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Vault.Path = cfgDir

	got, err := resolveVaultPath(flagDir, cfg)
	require.NoError(t, err)
	assert.Equal(t, flagDir, got)

	got, err = resolveVaultPath("", cfg)
	require.NoError(t, err)
	assert.Equal(t, cfgDir, got)
}

func TestResolveVaultPathRejectsFiles(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := resolveVaultPath(filepath.Join(t.TempDir(), "missing"), cfg)
	assert.Error(t, err)
}

func TestBuildLLMClientAppliesOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Default = "qwen"
	cfg.Model.OllamaEndpoint = "http://ollama.internal:11434/v1"
	cfg.Model.Timeout = 30 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := buildLLMClient(cfg, logger)
	require.NotNil(t, client)
	_, ok := client.(*llm.Client)
	assert.True(t, ok)
}

func TestDefaultRegistryOllamaOverride(t *testing.T) {
	registry := model.NewDefaultRegistry()
	ep := registry.GetEndpoint("qwen")
	require.NotNil(t, ep)

	ep.URL = "http://ollama.internal:11434/v1"
	registry.SetEndpoint("qwen", ep)

	assert.Equal(t, "http://ollama.internal:11434/v1", registry.GetEndpoint("qwen").URL)
}
