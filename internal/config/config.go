// Package config assembles client and server settings from an optional YAML
// file, a .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AmanSingh544/ChatAppResponsive/internal/utils"
)

type Client struct {
	ServerURL         string        `yaml:"server_url"`
	Token             string        `yaml:"token"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	AckTimeout        time.Duration `yaml:"ack_timeout"`
	TypingExpiry      time.Duration `yaml:"typing_expiry"`
	Codec             string        `yaml:"codec"`
}

type Server struct {
	Port            int           `yaml:"port"`
	DatabaseURL     string        `yaml:"database_url"`
	DataPath        string        `yaml:"data_path"`
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	HistoryLimit    int           `yaml:"history_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Client Client `yaml:"client"`
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
}

// Defaults mirror the web client's socket options (5 attempts, 1s apart,
// 20s handshake timeout).
func Defaults() Config {
	return Config{
		Client: Client{
			ServerURL:         "http://localhost:3000/",
			ReconnectAttempts: 5,
			ReconnectDelay:    time.Second,
			ConnectTimeout:    20 * time.Second,
			AckTimeout:        10 * time.Second,
			TypingExpiry:      3 * time.Second,
			Codec:             "json",
		},
		Server: Server{
			Port:            3000,
			JWTSecret:       "secret",
			TokenTTL:        72 * time.Hour,
			HistoryLimit:    50,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: Log{Level: "info"},
	}
}

// Load returns Defaults overlaid with the YAML file at path (skipped when
// path is empty) and then with environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	_ = utils.LoadEnv()
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	cl := &c.Client
	cl.ServerURL = utils.GetEnv("CHAT_SERVER_URL", cl.ServerURL)
	cl.Token = utils.GetEnv("CHAT_TOKEN", cl.Token)
	cl.ReconnectAttempts = utils.GetEnvInt("CHAT_RECONNECT_ATTEMPTS", cl.ReconnectAttempts)
	cl.ReconnectDelay = utils.GetEnvDuration("CHAT_RECONNECT_DELAY", cl.ReconnectDelay)
	cl.ConnectTimeout = utils.GetEnvDuration("CHAT_CONNECT_TIMEOUT", cl.ConnectTimeout)
	cl.AckTimeout = utils.GetEnvDuration("CHAT_ACK_TIMEOUT", cl.AckTimeout)
	cl.TypingExpiry = utils.GetEnvDuration("CHAT_TYPING_EXPIRY", cl.TypingExpiry)
	cl.Codec = utils.GetEnv("CHAT_CODEC", cl.Codec)

	s := &c.Server
	s.Port = utils.GetEnvInt("PORT", s.Port)
	s.DatabaseURL = utils.GetEnv("DATABASE_URL", s.DatabaseURL)
	if s.DatabaseURL == "" && utils.GetEnv("POSTGRES_HOST", "") != "" {
		// Fallback to individual vars
		s.DatabaseURL = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "chatdb") + "?sslmode=disable"
	}
	s.DataPath = utils.GetEnv("DATA_PATH", s.DataPath)
	s.JWTSecret = utils.GetEnv("JWT_SECRET", s.JWTSecret)
	s.TokenTTL = utils.GetEnvDuration("TOKEN_TTL", s.TokenTTL)
	s.HistoryLimit = utils.GetEnvInt("HISTORY_LIMIT", s.HistoryLimit)
	s.ShutdownTimeout = utils.GetEnvDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	c.Log.Level = utils.GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = utils.GetEnvBool("LOG_PRETTY", c.Log.Pretty)
}

// Validate rejects settings the session cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Client.ReconnectAttempts < 0:
		return fmt.Errorf("reconnect_attempts must not be negative")
	case c.Client.ReconnectDelay < 0:
		return fmt.Errorf("reconnect_delay must not be negative")
	case c.Client.ConnectTimeout <= 0:
		return fmt.Errorf("connect_timeout must be positive")
	case c.Client.AckTimeout <= 0:
		return fmt.Errorf("ack_timeout must be positive")
	case c.Client.TypingExpiry <= 0:
		return fmt.Errorf("typing_expiry must be positive")
	case c.Server.HistoryLimit <= 0:
		return fmt.Errorf("history_limit must be positive")
	}
	return nil
}
