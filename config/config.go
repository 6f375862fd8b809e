package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Agent     AgentConfig
	Gateway   GatewayConfig
	Workspace WorkspaceConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
}

// DatabaseConfig covers both store backends. Backend selects which one is
// wired at startup; the unused half is ignored.
type DatabaseConfig struct {
	Backend    string // "postgres" or "sqlite"
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AgentConfig drives the external scaffolding agent subprocess.
type AgentConfig struct {
	Bin         string
	RulesetPath string
	Deadline    time.Duration
}

// GatewayConfig points at the OpenClaw HTTP gateway used for chat.
// SessionsIndex is the gateway's on-disk session index, cleaned up when
// sessions are deleted here.
type GatewayConfig struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	SessionsIndex string
}

type WorkspaceConfig struct {
	ProjectsDir string
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8002"),
		},
		Database: DatabaseConfig{
			Backend:    getEnv("DB_BACKEND", "sqlite"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", "dreampilot"),
			SQLitePath: getEnv("DB_PATH", "clawdbot_adapter.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Agent: AgentConfig{
			Bin:         getEnv("AGENT_BIN", "openclaw"),
			RulesetPath: getEnv("AGENT_RULESET", "rule.md"),
			Deadline:    getEnvAsDuration("AGENT_DEADLINE", 20*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("CLAWDBOT_BASE_URL", "http://localhost:18789"),
			Token:         getEnv("CLAWDBOT_TOKEN", ""),
			Timeout:       getEnvAsDuration("CLAWDBOT_TIMEOUT", 300*time.Second),
			SessionsIndex: getEnv("CLAWDBOT_SESSIONS_PATH", defaultSessionsIndex()),
		},
		Workspace: WorkspaceConfig{
			ProjectsDir: getEnv("PROJECTS_DIR", "/var/lib/openclaw/projects"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Database.Backend {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres backend")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for the postgres backend")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("DB_BACKEND must be postgres or sqlite, got %q", c.Database.Backend)
	}

	if c.Agent.Deadline <= 0 {
		return fmt.Errorf("AGENT_DEADLINE must be positive")
	}

	return nil
}

func defaultSessionsIndex() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".openclaw", "agents", "main", "sessions", "sessions.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Accepts either a Go duration ("20m") or plain seconds ("1200").
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}

	log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
	return defaultValue
}
