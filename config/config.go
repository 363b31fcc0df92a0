package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/models"
)

// Config holds the project config values
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	BaseURL      string `env:"BASE_URL"`
	DatabaseURL  string `env:"DB_URI"`
	DatabaseName string `env:"DB_NAME" envDefault:"civic"`
	Environment  string `env:"ENVIRONMENT" envDefault:"local"`

	JWTSecret  string        `env:"JWT_SECRET"`
	JWTExpires time.Duration `env:"JWT_EXPIRES" envDefault:"168h"`

	AuthorityUsernames       []string `env:"AUTHORITY_USERNAMES" envSeparator:","`
	AuthorityDefaultPassword string   `env:"AUTHORITY_DEFAULT_PASSWORD" envDefault:"Authority@123"`
	AuthorityRegion          string   `env:"AUTHORITY_REGION" envDefault:"Sector 5"`
	CitizenRegion            string   `env:"CITIZEN_REGION" envDefault:"Sector 5"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER" envDefault:"civic-complaints"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"no-reply@civicpulse.local"`

	RedisURL      string `env:"REDIS_URL"`
	EventsChannel string `env:"EVENTS_CHANNEL" envDefault:"complaints:events"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// New sets up all config related services
func New() *Config {
	envFileErr := godotenv.Load(".env")

	var cfg Config
	parseErr := env.Parse(&cfg)

	//setup zap logger and replace default logger
	logger, err := setLogger(cfg.Environment)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	if envFileErr != nil {
		zap.S().Debugw("no .env file loaded", "error", envFileErr)
	}
	if parseErr != nil {
		zap.S().Errorw("failed to parse environment variables", "error", parseErr)
	}

	return &cfg
}

// ErrMissingJWTSecret is returned by Validate when JWT_SECRET is empty
var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

// Validate reports settings the server cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	resp := models.NewErrorMessage(message, err)
	zap.S().Errorw(message, "status", httpStatusCode, "error", resp.Response.Error)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
