package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to the components that need it.
// Nothing mutates it afterwards.
type Config struct {
	Environment    string        `env:"ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	AWSRegion      string        `env:"AWS_REGION" envDefault:"us-east-1"`

	Log       Log       `envPrefix:"LOG_"`
	Business  Business  `envPrefix:"BUSINESS_"`
	Social    Social    `envPrefix:"SOCIAL_"`
	Mail      Mail      `envPrefix:"MAIL_"`
	Storage   Storage   `envPrefix:"STORAGE_"`
	Uploads   Uploads   `envPrefix:"UPLOAD_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	Client    Client    `envPrefix:"CLIENT_"`

	// Signs bearer tokens for the operator-only delete route. Empty disables it.
	OperatorJWTSecret string `env:"OPERATOR_JWT_SECRET"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"ebdesignwerks-quote-api"`

	// Set by Load when a .env file was read.
	DotEnvLoaded bool
}

type Log struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"28"`
}

type Business struct {
	Name        string `env:"NAME" envDefault:"EB Design Werks"`
	Email       string `env:"EMAIL" envDefault:"ebdesignwerks@gmail.com"`
	Phone       string `env:"PHONE"`
	Address     string `env:"ADDRESS" envDefault:"Ohio, USA"`
	Tagline     string `env:"TAGLINE" envDefault:"Custom 3D Scanning, Printing & Light Manufacturing"`
	Description string `env:"DESCRIPTION" envDefault:"End-to-end digital fabrication services that turn physical objects or ideas into accurate digital models and functional parts."`
}

type Social struct {
	Instagram string `env:"INSTAGRAM" json:"instagram,omitempty"`
	Facebook  string `env:"FACEBOOK" json:"facebook,omitempty"`
	LinkedIn  string `env:"LINKEDIN" json:"linkedin,omitempty"`
	YouTube   string `env:"YOUTUBE" json:"youtube,omitempty"`
	TikTok    string `env:"TIKTOK" json:"tiktok,omitempty"`
}

// Mail configures the notification dispatcher.
// Provider is "ses" (Amazon SES v2) or "log" (write messages to the log).
type Mail struct {
	Provider  string `env:"PROVIDER" envDefault:"log"`
	Sender    string `env:"SENDER" envDefault:"ebdesignwerks@gmail.com"`
	Recipient string `env:"RECIPIENT" envDefault:"ebdesignwerks@gmail.com"`
}

// Storage configures the attachment object store.
// Provider is "s3" (AWS S3 or any S3 compatible endpoint such as R2) or "gcs".
type Storage struct {
	Provider           string `env:"PROVIDER" envDefault:"s3"`
	Bucket             string `env:"BUCKET"`
	Endpoint           string `env:"ENDPOINT"`
	AccessKeyID        string `env:"ACCESS_KEY_ID"`
	SecretAccessKey    string `env:"SECRET_ACCESS_KEY"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

type Uploads struct {
	MaxSizeMB         int      `env:"MAX_SIZE_MB" envDefault:"25"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envDefault:".jpg,.jpeg,.png,.gif,.webp,.heic,.pdf,.stl,.step,.stp,.iges,.igs,.obj,.3mf"`
}

type RateLimit struct {
	RPS   float64 `env:"RPS" envDefault:"0.5"`
	Burst int     `env:"BURST" envDefault:"5"`
}

// Client configures the submission flow. QuoteEndpoint selects the backend
// transport; when it is empty the EmailJS settings select the direct one.
type Client struct {
	QuoteEndpoint     string        `env:"QUOTE_ENDPOINT"`
	UploadEndpoint    string        `env:"UPLOAD_ENDPOINT"`
	EmailJSServiceID  string        `env:"EMAILJS_SERVICE_ID"`
	EmailJSTemplateID string        `env:"EMAILJS_TEMPLATE_ID"`
	EmailJSPublicKey  string        `env:"EMAILJS_PUBLIC_KEY"`
	EmailJSEndpoint   string        `env:"EMAILJS_ENDPOINT" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	loaded := godotenv.Load() == nil
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	cfg.DotEnvLoaded = loaded
	return cfg, nil
}

// Parse builds a Config from the current environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Mail.Provider = strings.ToLower(strings.TrimSpace(cfg.Mail.Provider))
	cfg.Storage.Provider = strings.ToLower(strings.TrimSpace(cfg.Storage.Provider))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mail.Provider {
	case "ses", "log":
	default:
		return fmt.Errorf("invalid MAIL_PROVIDER %q (want ses or log)", c.Mail.Provider)
	}
	switch c.Storage.Provider {
	case "s3", "gcs":
	default:
		return fmt.Errorf("invalid STORAGE_PROVIDER %q (want s3 or gcs)", c.Storage.Provider)
	}
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Mail.Recipient == "" || c.Mail.Sender == "" {
		return fmt.Errorf("MAIL_SENDER and MAIL_RECIPIENT must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// MaxUploadBytes is the per-file upload cap.
func (u Uploads) MaxUploadBytes() int64 {
	if u.MaxSizeMB <= 0 {
		return 25 << 20
	}
	return int64(u.MaxSizeMB) << 20
}
