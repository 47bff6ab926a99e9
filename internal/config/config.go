package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Storage     StorageConfig
	S3          S3Config
	GCS         GCSConfig
	Log         LogConfig
	LLM         LLMConfig
	CORS        CORSConfig
	Queue       QueueConfig
	Upload      UploadConfig
	Extraction  ExtractionConfig
	TextExtract TextExtractConfig
}

// QueueConfig holds extraction worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	Concurrency      int `mapstructure:"concurrency"`
	JobTimeoutSecs   int `mapstructure:"job_timeout_secs"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LLMProviderConfig holds settings for a single LLM provider.
type LLMProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	RateLimitRPM int    `mapstructure:"rate_limit_rpm"`
	// Project and Region are used by the vertex provider only.
	Project string `mapstructure:"project"`
	Region  string `mapstructure:"region"`
}

// LLMConfig holds the ordered provider chain used for billing extraction.
type LLMConfig struct {
	Primary   LLMProviderConfig `mapstructure:"primary"`
	Secondary LLMProviderConfig `mapstructure:"secondary"`
	Tertiary  LLMProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config.
func (l *LLMConfig) PrimaryConfig() *LLMProviderConfig {
	return &l.Primary
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (l *LLMConfig) SecondaryConfig() *LLMProviderConfig {
	if l.Secondary.Provider != "" {
		return &l.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (l *LLMConfig) TertiaryConfig() *LLMProviderConfig {
	if l.Tertiary.Provider != "" {
		return &l.Tertiary
	}
	return nil
}

// Chain returns the configured providers in fallback order.
func (l *LLMConfig) Chain() []*LLMProviderConfig {
	var chain []*LLMProviderConfig
	if l.Primary.Provider != "" {
		chain = append(chain, l.PrimaryConfig())
	}
	if s := l.SecondaryConfig(); s != nil {
		chain = append(chain, s)
	}
	if t := l.TertiaryConfig(); t != nil {
		chain = append(chain, t)
	}
	return chain
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects the object storage backend (s3, gcs or local).
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	LocalDir string `mapstructure:"local_dir"`
}

// Bucket returns the bucket name for the selected backend.
func (c *Config) Bucket() string {
	switch c.Storage.Provider {
	case "gcs":
		return c.GCS.Bucket
	case "local":
		return "local"
	default:
		return c.S3.Bucket
	}
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// UploadConfig holds contract upload limits.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
	MinTextChars  int   `mapstructure:"min_text_chars"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// ExtractionConfig holds the truncation thresholds applied before an LLM call.
type ExtractionConfig struct {
	MaxChars  int `mapstructure:"max_chars"`
	HeadChars int `mapstructure:"head_chars"`
	TailChars int `mapstructure:"tail_chars"`
}

// TextExtractConfig holds PDF text extraction settings.
type TextExtractConfig struct {
	PdftotextBin string `mapstructure:"pdftotext_bin"`
	MinPDFChars  int    `mapstructure:"min_pdf_chars"`
}

var providerKeys = []string{
	"provider", "api_key", "default_model", "max_retries", "timeout_secs",
	"max_tokens", "rate_limit_rpm", "project", "region",
}

// Load reads configuration from environment variables with the CONTRACTPARSER_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTRACTPARSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "contractparser")
	v.SetDefault("db.password", "contractparser_secret")
	v.SetDefault("db.name", "contractparser_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Storage defaults
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.local_dir", "./uploads")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "contract-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)
	v.SetDefault("gcs.bucket", "contract-uploads")
	v.SetDefault("gcs.credentials_file", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.job_timeout_secs", 300)

	// Upload and extraction defaults
	v.SetDefault("upload.max_file_size_mb", 10)
	v.SetDefault("upload.min_text_chars", 50)
	v.SetDefault("extraction.max_chars", 14000)
	v.SetDefault("extraction.head_chars", 12000)
	v.SetDefault("extraction.tail_chars", 2000)
	v.SetDefault("textextract.pdftotext_bin", "pdftotext")
	v.SetDefault("textextract.min_pdf_chars", 100)

	// LLM provider chain defaults
	v.SetDefault("llm.primary.provider", "openai")
	v.SetDefault("llm.secondary.provider", "claude")
	v.SetDefault("llm.tertiary.provider", "")
	for _, slot := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("llm."+slot+".api_key", "")
		v.SetDefault("llm."+slot+".default_model", "")
		v.SetDefault("llm."+slot+".max_retries", 2)
		v.SetDefault("llm."+slot+".timeout_secs", 120)
		v.SetDefault("llm."+slot+".max_tokens", 4000)
		v.SetDefault("llm."+slot+".rate_limit_rpm", 0)
		v.SetDefault("llm."+slot+".project", "")
		v.SetDefault("llm."+slot+".region", "us-central1")
	}

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":               "CONTRACTPARSER_SERVER_PORT",
		"server.read_timeout":       "CONTRACTPARSER_SERVER_READ_TIMEOUT",
		"server.write_timeout":      "CONTRACTPARSER_SERVER_WRITE_TIMEOUT",
		"server.environment":        "CONTRACTPARSER_SERVER_ENVIRONMENT",
		"db.host":                   "CONTRACTPARSER_DB_HOST",
		"db.port":                   "CONTRACTPARSER_DB_PORT",
		"db.user":                   "CONTRACTPARSER_DB_USER",
		"db.password":               "CONTRACTPARSER_DB_PASSWORD",
		"db.name":                   "CONTRACTPARSER_DB_NAME",
		"db.sslmode":                "CONTRACTPARSER_DB_SSLMODE",
		"db.max_open":               "CONTRACTPARSER_DB_MAX_OPEN",
		"db.max_idle":               "CONTRACTPARSER_DB_MAX_IDLE",
		"storage.provider":          "CONTRACTPARSER_STORAGE_PROVIDER",
		"storage.local_dir":         "CONTRACTPARSER_STORAGE_LOCAL_DIR",
		"s3.region":                 "CONTRACTPARSER_S3_REGION",
		"s3.bucket":                 "CONTRACTPARSER_S3_BUCKET",
		"s3.endpoint":               "CONTRACTPARSER_S3_ENDPOINT",
		"s3.access_key":             "CONTRACTPARSER_S3_ACCESS_KEY",
		"s3.secret_key":             "CONTRACTPARSER_S3_SECRET_KEY",
		"s3.presign_expiry":         "CONTRACTPARSER_S3_PRESIGN_EXPIRY",
		"gcs.bucket":                "CONTRACTPARSER_GCS_BUCKET",
		"gcs.credentials_file":      "CONTRACTPARSER_GCS_CREDENTIALS_FILE",
		"log.level":                 "CONTRACTPARSER_LOG_LEVEL",
		"log.format":                "CONTRACTPARSER_LOG_FORMAT",
		"cors.allowed_origins":      "CONTRACTPARSER_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":  "CONTRACTPARSER_QUEUE_POLL_INTERVAL_SECS",
		"queue.concurrency":         "CONTRACTPARSER_QUEUE_CONCURRENCY",
		"queue.job_timeout_secs":    "CONTRACTPARSER_QUEUE_JOB_TIMEOUT_SECS",
		"upload.max_file_size_mb":   "CONTRACTPARSER_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.min_text_chars":     "CONTRACTPARSER_UPLOAD_MIN_TEXT_CHARS",
		"extraction.max_chars":      "CONTRACTPARSER_EXTRACTION_MAX_CHARS",
		"extraction.head_chars":     "CONTRACTPARSER_EXTRACTION_HEAD_CHARS",
		"extraction.tail_chars":     "CONTRACTPARSER_EXTRACTION_TAIL_CHARS",
		"textextract.pdftotext_bin": "CONTRACTPARSER_TEXTEXTRACT_PDFTOTEXT_BIN",
		"textextract.min_pdf_chars": "CONTRACTPARSER_TEXTEXTRACT_MIN_PDF_CHARS",
	}
	for _, slot := range []string{"primary", "secondary", "tertiary"} {
		for _, k := range providerKeys {
			key := "llm." + slot + "." + k
			envBindings[key] = "CONTRACTPARSER_LLM_" + strings.ToUpper(slot+"_"+k)
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if CONTRACTPARSER_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("CONTRACTPARSER_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Storage = StorageConfig{
		Provider: v.GetString("storage.provider"),
		LocalDir: v.GetString("storage.local_dir"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.GCS = GCSConfig{
		Bucket:          v.GetString("gcs.bucket"),
		CredentialsFile: v.GetString("gcs.credentials_file"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.LLM = LLMConfig{
		Primary:   providerConfig(v, "primary"),
		Secondary: providerConfig(v, "secondary"),
		Tertiary:  providerConfig(v, "tertiary"),
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		Concurrency:      v.GetInt("queue.concurrency"),
		JobTimeoutSecs:   v.GetInt("queue.job_timeout_secs"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
		MinTextChars:  v.GetInt("upload.min_text_chars"),
	}
	cfg.Extraction = ExtractionConfig{
		MaxChars:  v.GetInt("extraction.max_chars"),
		HeadChars: v.GetInt("extraction.head_chars"),
		TailChars: v.GetInt("extraction.tail_chars"),
	}
	cfg.TextExtract = TextExtractConfig{
		PdftotextBin: v.GetString("textextract.pdftotext_bin"),
		MinPDFChars:  v.GetInt("textextract.min_pdf_chars"),
	}

	if cfg.Extraction.HeadChars+cfg.Extraction.TailChars > cfg.Extraction.MaxChars {
		return nil, fmt.Errorf("extraction head_chars + tail_chars (%d) exceeds max_chars (%d)",
			cfg.Extraction.HeadChars+cfg.Extraction.TailChars, cfg.Extraction.MaxChars)
	}

	return cfg, nil
}

func providerConfig(v *viper.Viper, slot string) LLMProviderConfig {
	prefix := "llm." + slot + "."
	return LLMProviderConfig{
		Provider:     v.GetString(prefix + "provider"),
		APIKey:       v.GetString(prefix + "api_key"),
		DefaultModel: v.GetString(prefix + "default_model"),
		MaxRetries:   v.GetInt(prefix + "max_retries"),
		TimeoutSecs:  v.GetInt(prefix + "timeout_secs"),
		MaxTokens:    v.GetInt(prefix + "max_tokens"),
		RateLimitRPM: v.GetInt(prefix + "rate_limit_rpm"),
		Project:      v.GetString(prefix + "project"),
		Region:       v.GetString(prefix + "region"),
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
