package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func setAllRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(KeyOpenAIAPIKey, "sk-env")
	t.Setenv(KeyOpenAIAPIBase, "https://example.openai.azure.com")
	t.Setenv(KeyOpenAIAPIVersion, "2023-05-15")
	t.Setenv(KeyOpenAIAPIType, "azure")
	t.Setenv(KeySlackBotToken, "xoxb-env")
	t.Setenv(KeySlackAppToken, "xapp-env")
	t.Setenv(KeyMessageHistoryCount, "5")
}

func envOnlyOptions(t *testing.T) LoadOptions {
	dir := t.TempDir()
	return LoadOptions{
		File:   filepath.Join(dir, "missing.yaml"),
		DotEnv: filepath.Join(dir, "missing.env"),
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv(KeySlackTaskTimeout, "30s")

	cfg, source, err := Load(viper.New(), envOnlyOptions(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceEnv {
		t.Fatalf("source = %q, want env", source)
	}
	if cfg.OpenAI.APIKey != "sk-env" || cfg.Slack.AppToken != "xapp-env" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MessageHistoryCount != 5 {
		t.Fatalf("MessageHistoryCount = %d, want 5", cfg.MessageHistoryCount)
	}
	if cfg.Slack.TaskTimeout != 30*time.Second {
		t.Fatalf("TaskTimeout = %v, want 30s", cfg.Slack.TaskTimeout)
	}
	if cfg.DefaultModel != "azure-gpt-4-32k" || cfg.RetrievalTopK != 4 || cfg.Slack.MaxConcurrency != 1 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv(KeySlackAppToken, "")
	os.Unsetenv(KeySlackAppToken)

	_, _, err := Load(viper.New(), envOnlyOptions(t))
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("Load() error = %v, want *MissingKeyError", err)
	}
	if missing.Key != KeySlackAppToken {
		t.Fatalf("missing key = %q, want %q", missing.Key, KeySlackAppToken)
	}
}

func TestLoadAcceptsEmptyRequiredEnv(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv(KeyOpenAIAPIType, "")

	cfg, _, err := Load(viper.New(), envOnlyOptions(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAI.APIType != "" {
		t.Fatalf("APIType = %q, want empty", cfg.OpenAI.APIType)
	}
	if cfg.Slack.TaskTimeout != 10*time.Minute {
		t.Fatalf("TaskTimeout = %v, want default 10m", cfg.Slack.TaskTimeout)
	}
}

func TestLoadSkipRequired(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv(KeySlackAppToken, "")
	t.Setenv(KeySlackBotToken, "")

	opts := envOnlyOptions(t)
	opts.SkipRequired = []string{KeySlackAppToken, KeySlackBotToken}
	if _, _, err := Load(viper.New(), opts); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadInvalidHistoryCount(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv(KeyMessageHistoryCount, "many")

	_, _, err := Load(viper.New(), envOnlyOptions(t))
	var invalid *InvalidValueError
	if !errors.As(err, &invalid) {
		t.Fatalf("Load() error = %v, want *InvalidValueError", err)
	}
}

func TestLoadFileIsExclusiveSource(t *testing.T) {
	setAllRequiredEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, ".config.yaml")
	raw := []byte(`OPENAI_API_KEY: sk-file
OPENAI_API_BASE: https://file.openai.azure.com
OPENAI_API_VERSION: "2023-07-01-preview"
OPENAI_API_TYPE: azure
SLACK_BOT_TOKEN: xoxb-file
SLACK_APP_TOKEN: xapp-file
MESSAGE_HISTORY_COUNT: 3
`)
	if err := os.WriteFile(file, raw, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, source, err := Load(viper.New(), LoadOptions{File: file})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceFile {
		t.Fatalf("source = %q, want file", source)
	}
	if cfg.OpenAI.APIKey != "sk-file" || cfg.Slack.BotToken != "xoxb-file" {
		t.Fatalf("env leaked into file config: %+v", cfg)
	}
	if cfg.MessageHistoryCount != 3 {
		t.Fatalf("MessageHistoryCount = %d, want 3", cfg.MessageHistoryCount)
	}
}

func TestLoadFileMissingKeyIgnoresEnv(t *testing.T) {
	setAllRequiredEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, ".config.yaml")
	if err := os.WriteFile(file, []byte("OPENAI_API_KEY: sk-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, source, err := Load(viper.New(), LoadOptions{File: file})
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("Load() error = %v, want *MissingKeyError", err)
	}
	if source != SourceFile || missing.Key != KeyOpenAIAPIBase {
		t.Fatalf("missing = %+v, source = %q", missing, source)
	}
}

func TestLoadDotEnv(t *testing.T) {
	for _, key := range RequiredKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	raw := []byte("OPENAI_API_KEY=sk-dotenv\nOPENAI_API_BASE=https://dotenv\nOPENAI_API_VERSION=v\nOPENAI_API_TYPE=openai\nSLACK_BOT_TOKEN=xoxb-d\nSLACK_APP_TOKEN=xapp-d\nMESSAGE_HISTORY_COUNT=2\n")
	if err := os.WriteFile(dotenv, raw, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, _, err := Load(viper.New(), LoadOptions{File: filepath.Join(dir, "none.yaml"), DotEnv: dotenv})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-dotenv" || cfg.OpenAI.APIType != "openai" {
		t.Fatalf("unexpected config: %+v", cfg.OpenAI)
	}
	for _, key := range RequiredKeys {
		os.Unsetenv(key)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{OpenAI: OpenAI{APIKey: "sk-1234567890"}, Slack: Slack{BotToken: "short"}}
	r := cfg.Redacted()
	if r.OpenAI.APIKey != "sk-1****" || r.Slack.BotToken != "****" || r.Slack.AppToken != "" {
		t.Fatalf("Redacted() = %+v", r)
	}
	if cfg.OpenAI.APIKey != "sk-1234567890" {
		t.Fatalf("Redacted() modified receiver")
	}
}
