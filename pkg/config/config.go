package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when the embedding provider key is not set.
var ErrMissingCredential = errors.New("GIGACHAT_API_KEY environment variable is required")

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	GigaChat GigaChatConfig
	Engine   EngineConfig
	Index    IndexConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// AuthConfig enables bearer-token protection of /recommend when SecretKey is set.
type AuthConfig struct {
	SecretKey string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
	Model              string
	EmbeddingModel     string
	Timeout            time.Duration
}

// EngineConfig holds the recommendation engine parameters.
type EngineConfig struct {
	Schema             string
	EmbeddingDimension int
	TopN               int
	CandidateLimit     int
	RuleBonus          float64
	UseLLMExplanations bool
	DescriptionsDir    string
}

type IndexConfig struct {
	Backend    string
	Collection string
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg := LoadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads the configuration without validating it. Commands that need
// only part of it, such as token issuing, use it directly.
func LoadEnv() *Config {
	// .env is optional, plain environment variables work as well
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout := getEnvInt("SERVER_READ_TIMEOUT", 30)
	writeTimeout := getEnvInt("SERVER_WRITE_TIMEOUT", 60)
	requestTimeout := getEnvInt("REQUEST_TIMEOUT", 45)
	gigaTimeout := getEnvInt("GIGACHAT_TIMEOUT", 20)

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8000"),
			ReadTimeout:    time.Duration(readTimeout) * time.Second,
			WriteTimeout:   time.Duration(writeTimeout) * time.Second,
			RequestTimeout: time.Duration(requestTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "db_advisor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 4)),
		},
		Auth: AuthConfig{
			SecretKey: getEnv("AUTH_JWT_SECRET", ""),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getEnvBool("GIGACHAT_INSECURE_SKIP_VERIFY", true),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			EmbeddingModel:     getEnv("GIGACHAT_EMBEDDING_MODEL", "Embeddings"),
			Timeout:            time.Duration(gigaTimeout) * time.Second,
		},
		Engine: EngineConfig{
			Schema:             getEnv("QUESTION_SCHEMA", "guided"),
			EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1024),
			TopN:               getEnvInt("TOP_N", 3),
			CandidateLimit:     getEnvInt("CANDIDATE_LIMIT", 0),
			RuleBonus:          getEnvFloat("RULE_BONUS", 0.10),
			UseLLMExplanations: getEnvBool("USE_LLM_EXPLANATIONS", true),
			DescriptionsDir:    getEnv("DESCRIPTIONS_DIR", "descriptions"),
		},
		Index: IndexConfig{
			Backend:    getEnv("INDEX_BACKEND", "memory"),
			Collection: getEnv("INDEX_COLLECTION", "databases"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg
}

// Validate reports configuration errors that must stop the process before serving.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GigaChat.APIKey) == "" {
		return ErrMissingCredential
	}
	if c.Engine.EmbeddingDimension <= 0 {
		return errors.New("EMBEDDING_DIMENSION must be positive")
	}
	if c.Engine.TopN <= 0 {
		return errors.New("TOP_N must be positive")
	}
	if c.Server.RequestTimeout < 0 {
		return errors.New("REQUEST_TIMEOUT must not be negative")
	}
	if c.Engine.CandidateLimit < 0 {
		return errors.New("CANDIDATE_LIMIT must not be negative")
	}
	switch c.Index.Backend {
	case "memory", "postgres":
	default:
		return errors.New("INDEX_BACKEND must be one of: memory, postgres")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
