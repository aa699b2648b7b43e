package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Провайдеры модели.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStub   = "stub"
)

type Config struct {
	DebugMode bool   `env:"DEBUG_MODE"` //Режим дебага
	Provider  string `env:"PROVIDER"`   // openai|gemini|stub

	OpenAI OpenAIConfig
	Gemini GeminiConfig

	AssistantPrompt string  `env:"ASSISTANT_PROMPT"`  // Персона ассистента (системное сообщение)
	MaxTurns        int     `env:"MAX_TURNS"`         // Сколько пар user/assistant хранить в истории
	Temperature     float64 `env:"TEMPERATURE"`       // Температура сэмплирования
	MaxOutputTokens int     `env:"MAX_OUTPUT_TOKENS"` // Лимит длины ответа

	HTTP    HTTPConfig
	Session SessionConfig
	UI      UIConfig
}

// OpenAIConfig параметры клиента OpenAI.
type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	Model   string `env:"OPENAI_MODEL"`
	BaseURL string `env:"OPENAI_BASE_URL"` // пусто: официальный endpoint
}

// GeminiConfig параметры клиента Gemini API.
type GeminiConfig struct {
	APIKey string `env:"GOOGLE_API_KEY"`
	Model  string `env:"GEMINI_MODEL"`
}

// HTTPConfig параметры веб-интерфейса.
type HTTPConfig struct {
	BindAddr       string        `env:"HTTP_BIND_ADDR"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"` // Таймаут одного цикла запрос-ответ
}

// SessionConfig время жизни сессий в памяти.
type SessionConfig struct {
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL"`
}

// UIConfig тексты страницы.
type UIConfig struct {
	PageTitle        string `env:"PAGE_TITLE"`
	InputPlaceholder string `env:"INPUT_PLACEHOLDER"`
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Provider:  ProviderGemini,
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-1.5-flash",
		},
		AssistantPrompt: "", // пусто: персона FruitBot по умолчанию
		MaxTurns:        2,
		Temperature:     0.2,
		MaxOutputTokens: 256,
		HTTP: HTTPConfig{
			BindAddr:       "127.0.0.1:8501",
			RequestTimeout: 60 * time.Second,
		},
		Session: SessionConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		UI: UIConfig{
			PageTitle:        "FruitBot",
			InputPlaceholder: "Which fruit would you like to ask about?",
		},
	}
}

// Parse собирает конфигурацию: дефолты → .env → окружение → флаги из args.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага (подробные логи)")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "провайдер модели: openai|gemini|stub")
	fs.StringVar(&cfg.OpenAI.Model, "openai-model", cfg.OpenAI.Model, "модель OpenAI")
	fs.StringVar(&cfg.OpenAI.BaseURL, "openai-base-url", cfg.OpenAI.BaseURL, "альтернативный endpoint OpenAI API")
	fs.StringVar(&cfg.Gemini.Model, "gemini-model", cfg.Gemini.Model, "модель Gemini")
	fs.StringVar(&cfg.AssistantPrompt, "assistant-prompt", cfg.AssistantPrompt, "текст персоны ассистента (системное сообщение)")
	fs.IntVar(&cfg.MaxTurns, "max-turns", cfg.MaxTurns, "сколько пар user/assistant хранить в истории")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "температура сэмплирования")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "лимит токенов ответа")
	fs.StringVar(&cfg.HTTP.BindAddr, "http-bind-addr", cfg.HTTP.BindAddr, "адрес веб-интерфейса, напр. 127.0.0.1:8501")
	fs.DurationVar(&cfg.HTTP.RequestTimeout, "request-timeout", cfg.HTTP.RequestTimeout, "таймаут одного вызова модели, напр. 60s")
	fs.DurationVar(&cfg.Session.IdleTTL, "session-idle-ttl", cfg.Session.IdleTTL, "через сколько неактивная сессия удаляется")
	fs.DurationVar(&cfg.Session.SweepInterval, "session-sweep-interval", cfg.Session.SweepInterval, "периодичность очистки сессий")
	fs.StringVar(&cfg.UI.PageTitle, "page-title", cfg.UI.PageTitle, "заголовок страницы")
	fs.StringVar(&cfg.UI.InputPlaceholder, "input-placeholder", cfg.UI.InputPlaceholder, "подсказка в поле ввода")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return cfg, nil
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов командной строки.
func NewConfig() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate проверяет конфигурацию до старта. Ошибка здесь фатальна для процесса.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			errs = append(errs, errors.New("missing OPENAI_API_KEY: set it as an environment variable or in .env file"))
		}
	case ProviderGemini:
		if strings.TrimSpace(c.Gemini.APIKey) == "" {
			errs = append(errs, errors.New("missing GOOGLE_API_KEY: set it as an environment variable or in .env file"))
		}
	case ProviderStub:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (want openai|gemini|stub)", c.Provider))
	}
	if c.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("max turns must be positive, got %d", c.MaxTurns))
	}
	if c.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("max output tokens must be positive, got %d", c.MaxOutputTokens))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature))
	}
	return errors.Join(errs...)
}
