package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName  string             `yaml:"runtime_name"`
	Environment  string             `yaml:"environment"`
	HTTP         HTTPConfig         `yaml:"http"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Bus          BusConfig          `yaml:"bus"`
	Conversation ConversationConfig `yaml:"conversation"`
	Archive      ArchiveConfig      `yaml:"archive"`
	EventStore   EventStoreConfig   `yaml:"event_store"`
	STT          STTConfig          `yaml:"stt"`
	LLM          LLMConfig          `yaml:"llm"`
	TTS          TTSConfig          `yaml:"tts"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type ConversationConfig struct {
	HistoryCap     int    `yaml:"history_cap"`
	SystemPrompt   string `yaml:"system_prompt"`
	WelcomeMessage string `yaml:"welcome_message"`
	FallbackReply  string `yaml:"fallback_reply"`
}

type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type STTConfig struct {
	Mode           string `yaml:"mode"` // mock, assemblyai, exec
	APIKey         string `yaml:"api_key"`
	Endpoint       string `yaml:"endpoint"`
	Language       string `yaml:"language"`
	Command        string `yaml:"command"`
	SampleRate     int    `yaml:"sample_rate"`
	Channels       int    `yaml:"channels"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	TimeoutMS      int    `yaml:"timeout_ms"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // mock, openai, exec
	APIKey      string  `yaml:"api_key"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Command     string  `yaml:"command"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

type TTSConfig struct {
	Mode            string `yaml:"mode"` // mock, elevenlabs, exec
	APIKey          string `yaml:"api_key"`
	Endpoint        string `yaml:"endpoint"`
	Voice           string `yaml:"voice"`
	Model           string `yaml:"model"`
	OptimizeLatency int    `yaml:"optimize_latency"`
	Command         string `yaml:"command"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

const defaultSystemPrompt = `You are a helpful, friendly, and conversational AI voice assistant.

Key guidelines:
- Keep responses concise and natural for voice conversation (2-4 sentences typically)
- Be warm and personable in your tone
- Ask clarifying questions when needed
- Avoid overly technical jargon unless the user is technical
- If you don't know something, be honest about it
- For long explanations, break them into digestible chunks
- Use conversational language, as if speaking to a friend

Remember: Your responses will be spoken aloud, so write in a way that sounds natural when read by text-to-speech.`

const defaultWelcomeMessage = "Hello! I'm your AI voice assistant. I'm here to help you with any questions or conversations you'd like to have. How can I assist you today?"

const defaultFallbackReply = "I apologize, but I'm having trouble processing that right now. Could you please try again?"

func Default() Config {
	return Config{
		RuntimeName: "voice-assistant",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Conversation: ConversationConfig{
			HistoryCap:     10,
			SystemPrompt:   defaultSystemPrompt,
			WelcomeMessage: defaultWelcomeMessage,
			FallbackReply:  defaultFallbackReply,
		},
		Archive: ArchiveConfig{
			Dir: "./data/conversations",
		},
		EventStore: EventStoreConfig{
			Path:          "./data/voice-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		STT: STTConfig{
			Mode:           "mock",
			Endpoint:       "https://api.assemblyai.com",
			Language:       "en",
			SampleRate:     16000,
			Channels:       1,
			PollIntervalMS: 500,
			TimeoutMS:      45000,
		},
		LLM: LLMConfig{
			Mode:        "mock",
			Endpoint:    "https://api.openai.com",
			Model:       "gpt-4o-mini",
			MaxTokens:   150,
			Temperature: 0.7,
			TimeoutMS:   60000,
		},
		TTS: TTSConfig{
			Mode:            "mock",
			Endpoint:        "https://api.elevenlabs.io",
			Voice:           "21m00Tcm4TlvDq8ikWAM",
			Model:           "eleven_turbo_v2_5",
			OptimizeLatency: 4,
			SampleRate:      22050,
			Channels:        1,
			TimeoutMS:       45000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Provider-native key names apply first so the VOICE_ prefixed forms
	// can still override them.
	overrideString(&cfg.STT.APIKey, "ASSEMBLYAI_API_KEY")
	overrideString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.TTS.APIKey, "ELEVENLABS_API_KEY")

	overrideString(&cfg.RuntimeName, "VOICE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VOICE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOICE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOICE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOICE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOICE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOICE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VOICE_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "VOICE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "VOICE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOICE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VOICE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOICE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOICE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOICE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOICE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOICE_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Conversation.HistoryCap, "VOICE_CONVERSATION_HISTORY_CAP")
	overrideString(&cfg.Conversation.SystemPrompt, "VOICE_CONVERSATION_SYSTEM_PROMPT")
	overrideString(&cfg.Conversation.WelcomeMessage, "VOICE_CONVERSATION_WELCOME_MESSAGE")
	overrideString(&cfg.Conversation.FallbackReply, "VOICE_CONVERSATION_FALLBACK_REPLY")
	overrideString(&cfg.Archive.Dir, "VOICE_ARCHIVE_DIR")
	overrideString(&cfg.EventStore.Path, "VOICE_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "VOICE_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "VOICE_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "VOICE_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "VOICE_EVENT_STORE_VACUUM_ON_START")
	overrideString(&cfg.STT.Mode, "VOICE_STT_MODE")
	overrideString(&cfg.STT.APIKey, "VOICE_STT_API_KEY")
	overrideString(&cfg.STT.Endpoint, "VOICE_STT_ENDPOINT")
	overrideString(&cfg.STT.Language, "VOICE_STT_LANGUAGE")
	overrideString(&cfg.STT.Command, "VOICE_STT_COMMAND")
	overrideInt(&cfg.STT.SampleRate, "VOICE_STT_SAMPLE_RATE")
	overrideInt(&cfg.STT.Channels, "VOICE_STT_CHANNELS")
	overrideInt(&cfg.STT.PollIntervalMS, "VOICE_STT_POLL_INTERVAL_MS")
	overrideInt(&cfg.STT.TimeoutMS, "VOICE_STT_TIMEOUT_MS")
	overrideString(&cfg.LLM.Mode, "VOICE_LLM_MODE")
	overrideString(&cfg.LLM.APIKey, "VOICE_LLM_API_KEY")
	overrideString(&cfg.LLM.Endpoint, "VOICE_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Model, "VOICE_LLM_MODEL")
	overrideString(&cfg.LLM.Command, "VOICE_LLM_COMMAND")
	overrideInt(&cfg.LLM.MaxTokens, "VOICE_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "VOICE_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.TimeoutMS, "VOICE_LLM_TIMEOUT_MS")
	overrideString(&cfg.TTS.Mode, "VOICE_TTS_MODE")
	overrideString(&cfg.TTS.APIKey, "VOICE_TTS_API_KEY")
	overrideString(&cfg.TTS.Endpoint, "VOICE_TTS_ENDPOINT")
	overrideString(&cfg.TTS.Voice, "VOICE_TTS_VOICE")
	overrideString(&cfg.TTS.Model, "VOICE_TTS_MODEL")
	overrideInt(&cfg.TTS.OptimizeLatency, "VOICE_TTS_OPTIMIZE_LATENCY")
	overrideString(&cfg.TTS.Command, "VOICE_TTS_COMMAND")
	overrideInt(&cfg.TTS.SampleRate, "VOICE_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "VOICE_TTS_CHANNELS")
	overrideInt(&cfg.TTS.TimeoutMS, "VOICE_TTS_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Conversation.HistoryCap <= 0 {
		return errors.New("conversation.history_cap must be >= 1")
	}
	if cfg.Conversation.SystemPrompt == "" {
		return errors.New("conversation.system_prompt must not be empty")
	}
	if cfg.Conversation.WelcomeMessage == "" {
		return errors.New("conversation.welcome_message must not be empty")
	}
	if cfg.Conversation.FallbackReply == "" {
		return errors.New("conversation.fallback_reply must not be empty")
	}
	if cfg.Archive.Dir == "" {
		return errors.New("archive.dir must not be empty")
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	switch cfg.STT.Mode {
	case "mock", "assemblyai", "exec":
	default:
		return errors.New("stt.mode must be one of mock|assemblyai|exec")
	}
	if cfg.STT.Mode == "assemblyai" && cfg.STT.APIKey == "" {
		return errors.New("stt.api_key must be set when mode=assemblyai")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.SampleRate <= 0 {
		return errors.New("stt.sample_rate must be positive")
	}
	if cfg.STT.Channels <= 0 {
		return errors.New("stt.channels must be positive")
	}
	if cfg.STT.TimeoutMS <= 0 {
		return errors.New("stt.timeout_ms must be positive")
	}
	switch cfg.LLM.Mode {
	case "mock", "openai", "exec":
	default:
		return errors.New("llm.mode must be one of mock|openai|exec")
	}
	if cfg.LLM.Mode == "openai" && cfg.LLM.APIKey == "" {
		return errors.New("llm.api_key must be set when mode=openai")
	}
	if cfg.LLM.Mode == "exec" && cfg.LLM.Command == "" {
		return errors.New("llm.command must be set when mode=exec")
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	if cfg.LLM.TimeoutMS <= 0 {
		return errors.New("llm.timeout_ms must be positive")
	}
	switch cfg.TTS.Mode {
	case "mock", "elevenlabs", "exec":
	default:
		return errors.New("tts.mode must be one of mock|elevenlabs|exec")
	}
	if cfg.TTS.Mode == "elevenlabs" && cfg.TTS.APIKey == "" {
		return errors.New("tts.api_key must be set when mode=elevenlabs")
	}
	if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
		return errors.New("tts.command must be set when mode=exec")
	}
	if cfg.TTS.OptimizeLatency < 0 || cfg.TTS.OptimizeLatency > 4 {
		return errors.New("tts.optimize_latency must be between 0 and 4")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.Channels <= 0 {
		return errors.New("tts.channels must be positive")
	}
	if cfg.TTS.TimeoutMS <= 0 {
		return errors.New("tts.timeout_ms must be positive")
	}
	return nil
}
