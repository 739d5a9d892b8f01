/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the bobby-relay hub
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	STT     STTConfig     `yaml:"stt"`
	Wake    WakeConfig    `yaml:"wake"`
	LLM     LLMConfig     `yaml:"llm"`
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	DBPath         string `yaml:"db_path"`
}

// AudioConfig holds capture format and normalization configuration
type AudioConfig struct {
	InputSampleRate int    `yaml:"input_sample_rate"`
	InputChannels   int    `yaml:"input_channels"`
	TargetRate      int    `yaml:"target_sample_rate"`
	FFmpegPath      string `yaml:"ffmpeg_path"`
	TempDir         string `yaml:"temp_dir"`
	MaxCaptureBytes int64  `yaml:"max_capture_bytes"`
}

// STTConfig holds transcription engine configuration
type STTConfig struct {
	Mode                string  `yaml:"mode"` // "whisper", "http", "mock"
	ModelPath           string  `yaml:"model_path"`
	URL                 string  `yaml:"url"`
	Language            string  `yaml:"language"`
	MinSilenceMS        int     `yaml:"min_silence_ms"`
	SpeechPadMS         int     `yaml:"speech_pad_ms"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// WakeConfig holds wake-word detection and debounce configuration
type WakeConfig struct {
	Word       string `yaml:"word"`
	CooldownMS int    `yaml:"cooldown_ms"`
}

// LLMConfig holds generation backend configuration
type LLMConfig struct {
	URL           string   `yaml:"url"`
	MaxTokens     int      `yaml:"max_tokens"`
	Temperature   float64  `yaml:"temperature"`
	Stop          []string `yaml:"stop"`
	TimeoutMS     int      `yaml:"timeout_ms"`
	FallbackReply string   `yaml:"fallback_reply"`
	Persona       string   `yaml:"persona"`
}

// NATSConfig holds NATS messaging configuration. An empty URL disables
// event publishing entirely.
type NATSConfig struct {
	URL             string `yaml:"url"`
	MaxReconnect    int    `yaml:"max_reconnect"`
	ReconnectWaitMS int    `yaml:"reconnect_wait_ms"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultFallbackReply is spoken back when the generation backend fails
// after a wake word was genuinely recognized.
const DefaultFallbackReply = "Désolé, je n'ai pas pu te répondre cette fois."

// DefaultPersona is the fixed system instruction embedded in every prompt.
const DefaultPersona = "Tu es Bobby, un assistant vocal amical et concis. Réponds en une ou deux phrases courtes."

// Load loads configuration from an optional YAML file (BOBBY_CONFIG) and
// environment variables. Environment variables always win over the file.
func Load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("BOBBY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			ReadTimeoutMS:  30000,
			WriteTimeoutMS: 120000,
			DBPath:         "./data/bobby-relay.db",
		},
		Audio: AudioConfig{
			InputSampleRate: 48000,
			InputChannels:   2,
			TargetRate:      16000,
			FFmpegPath:      "ffmpeg",
			TempDir:         os.TempDir(),
			MaxCaptureBytes: 32 << 20,
		},
		STT: STTConfig{
			Mode:                "whisper",
			ModelPath:           "./models/ggml-base.bin",
			URL:                 "http://stt:8000",
			Language:            "fr",
			MinSilenceMS:        700,
			SpeechPadMS:         200,
			ConfidenceThreshold: -0.5,
		},
		Wake: WakeConfig{
			Word:       "bobby",
			CooldownMS: 2000,
		},
		LLM: LLMConfig{
			URL:           "http://llm:8000",
			MaxTokens:     256,
			Temperature:   0.7,
			Stop:          []string{"<|eot_id|>", "User:"},
			TimeoutMS:     60000,
			FallbackReply: DefaultFallbackReply,
			Persona:       DefaultPersona,
		},
		NATS: NATSConfig{
			URL:             "",
			MaxReconnect:    10,
			ReconnectWaitMS: 2000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnv overrides config values from environment variables
func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("BOBBY_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("BOBBY_PORT", c.Server.Port)
	c.Server.ReadTimeoutMS = getEnvInt("BOBBY_READ_TIMEOUT_MS", c.Server.ReadTimeoutMS)
	c.Server.WriteTimeoutMS = getEnvInt("BOBBY_WRITE_TIMEOUT_MS", c.Server.WriteTimeoutMS)
	c.Server.DBPath = getEnvString("BOBBY_DB_PATH", c.Server.DBPath)

	c.Audio.InputSampleRate = getEnvInt("AUDIO_INPUT_RATE", c.Audio.InputSampleRate)
	c.Audio.InputChannels = getEnvInt("AUDIO_INPUT_CHANNELS", c.Audio.InputChannels)
	c.Audio.TargetRate = getEnvInt("AUDIO_TARGET_RATE", c.Audio.TargetRate)
	c.Audio.FFmpegPath = getEnvString("FFMPEG_PATH", c.Audio.FFmpegPath)
	c.Audio.TempDir = getEnvString("AUDIO_TEMP_DIR", c.Audio.TempDir)
	c.Audio.MaxCaptureBytes = getEnvInt64("BOBBY_MAX_CAPTURE_BYTES", c.Audio.MaxCaptureBytes)

	c.STT.Mode = getEnvString("STT_MODE", c.STT.Mode)
	c.STT.ModelPath = getEnvString("STT_MODEL_PATH", c.STT.ModelPath)
	c.STT.URL = getEnvString("STT_URL", c.STT.URL)
	c.STT.Language = getEnvString("STT_LANGUAGE", c.STT.Language)
	c.STT.MinSilenceMS = getEnvInt("STT_MIN_SILENCE_MS", c.STT.MinSilenceMS)
	c.STT.SpeechPadMS = getEnvInt("STT_SPEECH_PAD_MS", c.STT.SpeechPadMS)
	c.STT.ConfidenceThreshold = getEnvFloat64("STT_CONFIDENCE_THRESHOLD", c.STT.ConfidenceThreshold)

	c.Wake.Word = getEnvString("WAKE_WORD", c.Wake.Word)
	c.Wake.CooldownMS = getEnvInt("WAKE_COOLDOWN_MS", c.Wake.CooldownMS)

	c.LLM.URL = getEnvString("LLM_URL", c.LLM.URL)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvFloat64("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Stop = getEnvStringSlice("LLM_STOP", c.LLM.Stop)
	c.LLM.TimeoutMS = getEnvInt("LLM_TIMEOUT_MS", c.LLM.TimeoutMS)
	c.LLM.FallbackReply = getEnvString("LLM_FALLBACK_REPLY", c.LLM.FallbackReply)
	c.LLM.Persona = getEnvString("LLM_PERSONA", c.LLM.Persona)

	c.NATS.URL = getEnvString("NATS_URL", c.NATS.URL)
	c.NATS.MaxReconnect = getEnvInt("NATS_MAX_RECONNECT", c.NATS.MaxReconnect)
	c.NATS.ReconnectWaitMS = getEnvInt("NATS_RECONNECT_WAIT_MS", c.NATS.ReconnectWaitMS)

	c.Logging.Level = getEnvString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvString("LOG_FORMAT", c.Logging.Format)
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Audio.InputSampleRate <= 0 || c.Audio.TargetRate <= 0 {
		return fmt.Errorf("sample rates must be positive: input=%d target=%d",
			c.Audio.InputSampleRate, c.Audio.TargetRate)
	}

	if c.Audio.InputChannels <= 0 {
		return fmt.Errorf("input channel count must be positive: %d", c.Audio.InputChannels)
	}

	switch c.STT.Mode {
	case "whisper", "http", "mock":
	default:
		return fmt.Errorf("unknown STT mode: %q", c.STT.Mode)
	}

	if c.STT.Mode == "http" && c.STT.URL == "" {
		return fmt.Errorf("STT URL must be provided in http mode")
	}

	if strings.TrimSpace(c.Wake.Word) == "" {
		return fmt.Errorf("wake word must not be empty")
	}

	if strings.ContainsAny(c.Wake.Word, " \t") {
		return fmt.Errorf("wake word must be a single token: %q", c.Wake.Word)
	}

	if c.Wake.CooldownMS < 0 {
		return fmt.Errorf("wake cooldown must not be negative: %d", c.Wake.CooldownMS)
	}

	if strings.TrimSpace(c.LLM.URL) == "" {
		return fmt.Errorf("LLM URL must be provided")
	}

	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM max tokens must be positive: %d", c.LLM.MaxTokens)
	}

	if c.LLM.TimeoutMS <= 0 {
		return fmt.Errorf("LLM timeout must be positive: %d", c.LLM.TimeoutMS)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
