// Package config handles loading and validating the kartavyabot configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Bot modes.
const (
	ModeMenu      = "menu"      // static menu responder
	ModeAssistant = "assistant" // generative model with reply normalization
	ModeRelay     = "relay"     // local REST backend, result forwarded verbatim
)

// Config is the root configuration for the bot.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Backend  BackendConfig  `mapstructure:"backend"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BotConfig controls how inbound messages are answered.
type BotConfig struct {
	Mode     string `mapstructure:"mode"`     // "menu", "assistant" or "relay"
	Provider string `mapstructure:"provider"` // "gemini" or "openai" (assistant mode)
	Persona  string `mapstructure:"persona"`  // system instruction; empty uses the built-in one

	// DefaultReply replaces an empty structured reply from the model.
	DefaultReply string `mapstructure:"default_reply"`

	// HistoryDepth is how many prior turns per sender are kept in memory. 0 disables.
	HistoryDepth int `mapstructure:"history_depth"`

	// MaxSenders caps how many senders' histories are held; the least
	// recently active is dropped first.
	MaxSenders int `mapstructure:"max_senders"`

	// ContactsFile is a CSV with phone and name columns. Empty disables contacts.
	ContactsFile string `mapstructure:"contacts_file"`

	// ContactsOnly restricts replies to senders listed in ContactsFile.
	ContactsOnly bool `mapstructure:"contacts_only"`

	// BroadcastMessage is the greeting template sent by the broadcast command.
	// "{name}" is replaced with the contact's name.
	BroadcastMessage string `mapstructure:"broadcast_message"`

	// BroadcastInterval is the pause between two broadcast sends.
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
}

// GeminiConfig holds Google Generative AI settings.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
	TopK        int32         `mapstructure:"top_k"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig holds settings for any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"` // e.g. http://localhost:11434/v1 for Ollama
	CompletionModel    string        `mapstructure:"completion_model"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	Temperature        float32       `mapstructure:"temperature"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// BackendConfig holds the locally hosted REST backend settings.
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
}

// WhatsAppConfig configures the WhatsApp transport.
type WhatsAppConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	StoreDSN      string `mapstructure:"store_dsn"`       // sqlite DSN for the device store
	LogLevel      string `mapstructure:"log_level"`       // whatsmeow library log level
	MaxReplyChars int    `mapstructure:"max_reply_chars"` // outbound text is truncated to this many runes
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GRPCConfig configures the gRPC health endpoint.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from .env, file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./kartavyabot.yaml, ./configs/kartavyabot.yaml, /etc/kartavyabot/kartavyabot.yaml.
func Load(configFile string) (*Config, error) {
	// A missing .env is fine; the process environment is used as-is.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("kartavyabot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/kartavyabot")
	}

	// Environment variables: KARTAVYABOT_BOT_MODE, KARTAVYABOT_GEMINI_API_KEY, etc.
	v.SetEnvPrefix("KARTAVYABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}").
	cfg.Gemini.APIKey = resolveEnvRef(cfg.Gemini.APIKey)
	cfg.OpenAI.APIKey = resolveEnvRef(cfg.OpenAI.APIKey)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.mode", ModeAssistant)
	v.SetDefault("bot.provider", "gemini")
	v.SetDefault("bot.persona", "")
	v.SetDefault("bot.default_reply", "I'm here to help you with KartavyaAI services.")
	v.SetDefault("bot.history_depth", 4)
	v.SetDefault("bot.max_senders", 1000)
	v.SetDefault("bot.contacts_file", "")
	v.SetDefault("bot.contacts_only", false)
	v.SetDefault("bot.broadcast_message", "👋 Hello {name}! This is *KartavyaAI*, your AI & web solutions partner.\n\nType *menu* to explore what we offer.")
	v.SetDefault("bot.broadcast_interval", "2s")
	v.SetDefault("gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.top_k", 40)
	v.SetDefault("gemini.timeout", "30s")
	v.SetDefault("openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.completion_model", "gpt-4o-mini")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.timeout", "30s")
	v.SetDefault("backend.base_url", envOr("FAST_API_BASE_URL", "http://127.0.0.1:8000"))
	v.SetDefault("backend.query_timeout", "30s")
	v.SetDefault("backend.health_timeout", "5s")
	v.SetDefault("whatsapp.enabled", true)
	v.SetDefault("whatsapp.store_dsn", "file:kartavyabot.db?_foreign_keys=on")
	v.SetDefault("whatsapp.log_level", "warn")
	v.SetDefault("whatsapp.max_reply_chars", 4000)
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.port", 8080)
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that the selected mode has what it needs.
func (c *Config) Validate() error {
	switch c.Bot.Mode {
	case ModeMenu:
	case ModeRelay:
		if strings.TrimSpace(c.Backend.BaseURL) == "" {
			return errors.New("backend.base_url is required in relay mode")
		}
	case ModeAssistant:
		switch c.Bot.Provider {
		case "gemini":
			if !hasValue(c.Gemini.APIKey) {
				return errors.New("gemini.api_key is required when bot.provider is gemini")
			}
		case "openai":
			// Self-hosted OpenAI-compatible servers usually accept any key.
			if !hasValue(c.OpenAI.APIKey) && c.OpenAI.BaseURL == "https://api.openai.com/v1" {
				return errors.New("openai.api_key is required for api.openai.com")
			}
		default:
			return fmt.Errorf("unknown bot.provider %q", c.Bot.Provider)
		}
	default:
		return fmt.Errorf("unknown bot.mode %q", c.Bot.Mode)
	}
	if c.Bot.ContactsOnly && c.Bot.ContactsFile == "" {
		return errors.New("bot.contacts_only requires bot.contacts_file")
	}
	if c.Bot.HistoryDepth < 0 {
		return errors.New("bot.history_depth must not be negative")
	}
	if c.Bot.MaxSenders < 0 {
		return errors.New("bot.max_senders must not be negative")
	}
	return nil
}

// hasValue reports whether a secret was actually provided, treating an
// unresolved "${VAR}" reference as missing.
func hasValue(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !(strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}"))
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
