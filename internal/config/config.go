package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultFile = ".config.yaml"

const (
	KeyOpenAIAPIKey        = "OPENAI_API_KEY"
	KeyOpenAIAPIBase       = "OPENAI_API_BASE"
	KeyOpenAIAPIVersion    = "OPENAI_API_VERSION"
	KeyOpenAIAPIType       = "OPENAI_API_TYPE"
	KeySlackBotToken       = "SLACK_BOT_TOKEN"
	KeySlackAppToken       = "SLACK_APP_TOKEN"
	KeyMessageHistoryCount = "MESSAGE_HISTORY_COUNT"

	KeyDefaultModel        = "DEFAULT_MODEL"
	KeyModelProfiles       = "MODEL_PROFILES"
	KeySystemPrompt        = "SYSTEM_PROMPT"
	KeyRetrievalTopK       = "RETRIEVAL_TOP_K"
	KeyDocumentStorePath   = "DOCUMENT_STORE_PATH"
	KeySlackMaxConcurrency = "SLACK_MAX_CONCURRENCY"
	KeySlackTaskTimeout    = "SLACK_TASK_TIMEOUT"
	KeySlackAPIBaseURL     = "SLACK_API_BASE_URL"
	KeyLLMRequestTimeout   = "LLM_REQUEST_TIMEOUT"
	KeyLLMMaxRetries       = "LLM_MAX_RETRIES"
	KeyHealthListen        = "HEALTH_LISTEN"
	KeyLogLevel            = "LOG_LEVEL"
	KeyLogFormat           = "LOG_FORMAT"
	KeyLogAddSource        = "LOG_ADD_SOURCE"
)

// RequiredKeys must be present in whichever source is selected.
var RequiredKeys = []string{
	KeyOpenAIAPIKey,
	KeyOpenAIAPIBase,
	KeyOpenAIAPIVersion,
	KeyOpenAIAPIType,
	KeySlackBotToken,
	KeySlackAppToken,
	KeyMessageHistoryCount,
}

var optionalKeys = []string{
	KeyDefaultModel,
	KeyModelProfiles,
	KeySystemPrompt,
	KeyRetrievalTopK,
	KeyDocumentStorePath,
	KeySlackMaxConcurrency,
	KeySlackTaskTimeout,
	KeySlackAPIBaseURL,
	KeyLLMRequestTimeout,
	KeyLLMMaxRetries,
	KeyHealthListen,
	KeyLogLevel,
	KeyLogFormat,
	KeyLogAddSource,
}

type Source string

const (
	SourceFile Source = "file"
	SourceEnv  Source = "env"
)

type OpenAI struct {
	APIKey     string        `yaml:"api_key"`
	APIBase    string        `yaml:"api_base"`
	APIVersion string        `yaml:"api_version"`
	APIType    string        `yaml:"api_type"`
	Timeout    time.Duration `yaml:"request_timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type Slack struct {
	BotToken       string        `yaml:"bot_token"`
	AppToken       string        `yaml:"app_token"`
	APIBaseURL     string        `yaml:"api_base_url"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	TaskTimeout    time.Duration `yaml:"task_timeout"`
}

type Log struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

type Config struct {
	OpenAI              OpenAI `yaml:"openai"`
	Slack               Slack  `yaml:"slack"`
	MessageHistoryCount int    `yaml:"message_history_count"`
	DefaultModel        string `yaml:"default_model"`
	ModelProfiles       string `yaml:"model_profiles,omitempty"`
	SystemPrompt        string `yaml:"system_prompt,omitempty"`
	RetrievalTopK       int    `yaml:"retrieval_top_k"`
	DocumentStorePath   string `yaml:"document_store_path"`
	HealthListen        string `yaml:"health_listen,omitempty"`
	Log                 Log    `yaml:"log"`
}

type LoadOptions struct {
	// File is the YAML file used as the only source when it exists.
	// Empty means DefaultFile.
	File string
	// DotEnv is loaded into the process environment before env lookup.
	// Missing files are ignored.
	DotEnv string
	// SkipRequired lets tooling commands (index, models) run without Slack
	// or OpenAI credentials.
	SkipRequired []string
}

// Load selects the configuration source and builds a Config from it. When
// the YAML file exists it is the only source; otherwise keys are read from
// the process environment.
func Load(v *viper.Viper, opts LoadOptions) (*Config, Source, error) {
	if v == nil {
		v = viper.New()
	}
	file := strings.TrimSpace(opts.File)
	if file == "" {
		file = DefaultFile
	}

	source := SourceEnv
	if _, err := os.Stat(file); err == nil {
		source = SourceFile
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, source, fmt.Errorf("read %s: %w", file, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, source, fmt.Errorf("stat %s: %w", file, err)
	} else {
		dotenv := strings.TrimSpace(opts.DotEnv)
		if dotenv == "" {
			dotenv = ".env"
		}
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, source, fmt.Errorf("load %s: %w", dotenv, err)
		}
		for _, key := range append(append([]string(nil), RequiredKeys...), optionalKeys...) {
			if err := v.BindEnv(key); err != nil {
				return nil, source, err
			}
		}
	}
	setDefaults(v)

	skip := make(map[string]bool, len(opts.SkipRequired))
	for _, k := range opts.SkipRequired {
		skip[k] = true
	}
	for _, key := range RequiredKeys {
		if skip[key] {
			continue
		}
		if v.IsSet(key) {
			continue
		}
		// A variable exported with an empty value still counts as present.
		if _, ok := os.LookupEnv(key); ok && source == SourceEnv {
			continue
		}
		return nil, source, &MissingKeyError{Key: key, Source: source}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, source, err
	}
	return cfg, source, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDefaultModel, "azure-gpt-4-32k")
	v.SetDefault(KeyRetrievalTopK, 4)
	v.SetDefault(KeyDocumentStorePath, "slackqa.db")
	v.SetDefault(KeySlackMaxConcurrency, 1)
	v.SetDefault(KeySlackTaskTimeout, 10*time.Minute)
	v.SetDefault(KeySlackAPIBaseURL, "https://slack.com/api/")
	v.SetDefault(KeyLLMRequestTimeout, 2*time.Minute)
	v.SetDefault(KeyLLMMaxRetries, 2)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")
}

func fromViper(v *viper.Viper) (*Config, error) {
	historyCount := 0
	if v.IsSet(KeyMessageHistoryCount) {
		raw := strings.TrimSpace(v.GetString(KeyMessageHistoryCount))
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, &InvalidValueError{Key: KeyMessageHistoryCount, Value: raw, Reason: "must be a non-negative integer"}
		}
		historyCount = n
	}

	cfg := &Config{
		OpenAI: OpenAI{
			APIKey:     strings.TrimSpace(v.GetString(KeyOpenAIAPIKey)),
			APIBase:    strings.TrimSpace(v.GetString(KeyOpenAIAPIBase)),
			APIVersion: strings.TrimSpace(v.GetString(KeyOpenAIAPIVersion)),
			APIType:    strings.ToLower(strings.TrimSpace(v.GetString(KeyOpenAIAPIType))),
			Timeout:    v.GetDuration(KeyLLMRequestTimeout),
			MaxRetries: v.GetInt(KeyLLMMaxRetries),
		},
		Slack: Slack{
			BotToken:       strings.TrimSpace(v.GetString(KeySlackBotToken)),
			AppToken:       strings.TrimSpace(v.GetString(KeySlackAppToken)),
			APIBaseURL:     strings.TrimSpace(v.GetString(KeySlackAPIBaseURL)),
			MaxConcurrency: v.GetInt(KeySlackMaxConcurrency),
			TaskTimeout:    v.GetDuration(KeySlackTaskTimeout),
		},
		MessageHistoryCount: historyCount,
		DefaultModel:        strings.TrimSpace(v.GetString(KeyDefaultModel)),
		ModelProfiles:       strings.TrimSpace(v.GetString(KeyModelProfiles)),
		SystemPrompt:        v.GetString(KeySystemPrompt),
		RetrievalTopK:       v.GetInt(KeyRetrievalTopK),
		DocumentStorePath:   strings.TrimSpace(v.GetString(KeyDocumentStorePath)),
		HealthListen:        strings.TrimSpace(v.GetString(KeyHealthListen)),
		Log: Log{
			Level:     strings.TrimSpace(v.GetString(KeyLogLevel)),
			Format:    strings.TrimSpace(v.GetString(KeyLogFormat)),
			AddSource: v.GetBool(KeyLogAddSource),
		},
	}
	if cfg.Slack.MaxConcurrency <= 0 {
		cfg.Slack.MaxConcurrency = 1
	}
	if cfg.RetrievalTopK < 0 {
		cfg.RetrievalTopK = 0
	}
	return cfg, nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	c.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	c.Slack.BotToken = mask(c.Slack.BotToken)
	c.Slack.AppToken = mask(c.Slack.AppToken)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}
