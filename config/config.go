package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Minio     MinioConfig     `yaml:"minio"`
	OCR       OCRConfig       `yaml:"ocr"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Derive    DeriveConfig    `yaml:"derive"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Users     []User          `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// OCRConfig describes the ordered OCR backend list and the shared
// circuit-breaker thresholds.
type OCRConfig struct {
	Backends       []OCRBackendConfig   `yaml:"backends"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type OCRBackendConfig struct {
	Name           string `yaml:"name"`
	Endpoint       string `yaml:"endpoint"`
	Priority       int    `yaml:"priority"` // lower = tried first
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call budget for this backend.
func (b OCRBackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
}

func (c CircuitBreakerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

type ExtractorConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// Pointer so an explicit 0 survives defaulting; nil means unset.
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// TemperatureValue returns the configured sampling temperature, falling
// back to the default when unset.
func (e ExtractorConfig) TemperatureValue() float64 {
	if e.Temperature == nil {
		return 0.1
	}
	return *e.Temperature
}

// DeriveConfig holds the day offsets used by the event derivation rules.
type DeriveConfig struct {
	ReminderLeadDays        int `yaml:"reminder_lead_days"`
	RenewalAlertDays        int `yaml:"renewal_alert_days"`
	DepositGraceDays        int `yaml:"deposit_grace_days"`
	MaintenanceIntervalDays int `yaml:"maintenance_interval_days"`
}

type PipelineConfig struct {
	DeadlineSeconds int `yaml:"deadline_seconds"`
}

func (p PipelineConfig) Deadline() time.Duration {
	return time.Duration(p.DeadlineSeconds) * time.Second
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	MaxAnalyses int `yaml:"max_analyses"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.OCR.CircuitBreaker.FailureThreshold == 0 {
		cfg.OCR.CircuitBreaker.FailureThreshold = 3
	}
	if cfg.OCR.CircuitBreaker.CooldownSeconds == 0 {
		cfg.OCR.CircuitBreaker.CooldownSeconds = 30
	}
	for i := range cfg.OCR.Backends {
		if cfg.OCR.Backends[i].TimeoutSeconds == 0 {
			cfg.OCR.Backends[i].TimeoutSeconds = 30
		}
	}
	if cfg.Extractor.Model == "" {
		cfg.Extractor.Model = "gpt-4o-mini"
	}
	if cfg.Extractor.APIURL == "" {
		cfg.Extractor.APIURL = "https://api.openai.com/v1"
	}
	if cfg.Extractor.Temperature == nil {
		temperature := 0.1
		cfg.Extractor.Temperature = &temperature
	}
	if cfg.Extractor.MaxTokens == 0 {
		cfg.Extractor.MaxTokens = 3000
	}
	if cfg.Extractor.TimeoutSeconds == 0 {
		cfg.Extractor.TimeoutSeconds = 60
	}
	if cfg.Derive.ReminderLeadDays == 0 {
		cfg.Derive.ReminderLeadDays = 3
	}
	if cfg.Derive.RenewalAlertDays == 0 {
		cfg.Derive.RenewalAlertDays = 60
	}
	if cfg.Derive.DepositGraceDays == 0 {
		cfg.Derive.DepositGraceDays = 14
	}
	if cfg.Derive.MaintenanceIntervalDays == 0 {
		cfg.Derive.MaintenanceIntervalDays = 90
	}
	if cfg.Pipeline.DeadlineSeconds == 0 {
		cfg.Pipeline.DeadlineSeconds = 120
	}
	if cfg.Store.MaxAnalyses == 0 {
		cfg.Store.MaxAnalyses = 100
	}

	if len(cfg.OCR.Backends) == 0 {
		return nil, fmt.Errorf("config: at least one OCR backend is required")
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
