package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Whatsapp WhatsappConfig
	Session  SessionConfig
	Campaign CampaignConfig
	AI       AIConfig
	Security SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
}

type PathsConfig struct {
	Storages string
	Statics  string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB name for Postgres
}

type WhatsappConfig struct {
	LogLevel     string
	OSName       string
	TypeUser     string
	TypeGroup    string
	MaxMediaSize int64
	AllowedMimes []string
}

type SessionConfig struct {
	MaxSessions   int
	InitTimeout   time.Duration
	SendTimeout   time.Duration
	QueueSize     int
	MetadataFile  string
	AutoReconnect bool
}

type CampaignConfig struct {
	SweepInterval  time.Duration
	RecipientDelay time.Duration
}

type AIConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

type SecurityConfig struct {
	SecretKey string
}

// Global provides access to the loaded configuration.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		Storages: baseDir,
		Statics:  getEnv("PATH_STATICS", "statics"),
	}

	dbCfg := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "sqlite"),
		Name:     getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "app.db")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
	}

	waCfg := WhatsappConfig{
		LogLevel:     getEnv("WHATSAPP_LOG_LEVEL", "ERROR"),
		OSName:       getEnv("APP_OS", "Linux"),
		TypeUser:     "@s.whatsapp.net",
		TypeGroup:    "@g.us",
		MaxMediaSize: getEnvInt64("WHATSAPP_MAX_MEDIA_SIZE", 1024*1024),
		AllowedMimes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"application/pdf", "text/plain",
			"audio/mpeg", "audio/ogg",
			"video/mp4",
		},
	}

	sessionCfg := SessionConfig{
		MaxSessions:   getEnvInt("SESSION_MAX", 20),
		InitTimeout:   time.Duration(getEnvInt("SESSION_INIT_TIMEOUT_MS", 180000)) * time.Millisecond,
		SendTimeout:   time.Duration(getEnvInt("SESSION_SEND_TIMEOUT_MS", 30000)) * time.Millisecond,
		QueueSize:     getEnvInt("SESSION_QUEUE_SIZE", 1000),
		MetadataFile:  getEnv("SESSION_METADATA_FILE", filepath.Join(baseDir, "sessions.json")),
		AutoReconnect: getEnvBool("SESSION_AUTO_RECONNECT", true),
	}

	campaignCfg := CampaignConfig{
		SweepInterval:  time.Duration(getEnvInt("CAMPAIGN_SWEEP_INTERVAL_MS", 10000)) * time.Millisecond,
		RecipientDelay: time.Duration(getEnvInt("CAMPAIGN_RECIPIENT_DELAY_MS", 2000)) * time.Millisecond,
	}

	aiCfg := AIConfig{
		APIKey:       getEnv("OPENAI_API_KEY", ""),
		Model:        getEnv("AI_MODEL", "gpt-4o-mini"),
		SystemPrompt: getEnv("AI_GLOBAL_SYSTEM_PROMPT", ""),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Whatsapp: waCfg,
		Session:  sessionCfg,
		Campaign: campaignCfg,
		AI:       aiCfg,
		Security: SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "changeme_please_change_me_in_prod_12345")},
	}

	Global = cfg
	return cfg, nil
}
