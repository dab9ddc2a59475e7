// Package config loads application settings from defaults, command-line
// flags and environment variables (in that order of precedence) and
// validates the result.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting the application needs. All components receive
// values from here at construction time; nothing reads the environment after
// startup.
type Config struct {
	RunAddr  string `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	// PublicBaseURL is the externally visible base of this server. Local
	// media references are formed against it.
	PublicBaseURL string `env:"BASE_URL" validate:"url"`

	// AllowedOrigin is the browser origin allowed to send credentialed
	// requests.
	AllowedOrigin string `env:"ALLOWED_ORIGIN" validate:"omitempty,url"`

	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	// SessionCookieName names the HTTP-only cookie carrying the session
	// token.
	SessionCookieName string `env:"SESSION_COOKIE_NAME" validate:"required"`

	// SessionSigningSecretKey is the base64-encoded HMAC key used to sign
	// session tokens. The default below exists for local development only;
	// deployments must set SESSION_SIGNING_KEY.
	SessionSigningSecretKey string `env:"SESSION_SIGNING_KEY" validate:"required,base64url"`

	// UploadsDir is where the local-disk media backend writes photos. It is
	// served under /uploads/.
	UploadsDir string `env:"UPLOADS_DIR" validate:"filepath"`

	// MediaBucket selects the object-store media backend when non-empty.
	MediaBucket string `env:"MEDIA_BUCKET"`

	// UploadTimeout bounds every media backend write and remote photo fetch.
	UploadTimeout time.Duration `env:"UPLOAD_TIMEOUT"`

	// TrustedSubnet gates the internal stats endpoint (CIDR notation).
	TrustedSubnet string `env:"TRUSTED_SUBNET"`
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command-line flag parsing. Tests use it
// to avoid clashing with the `go test` flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a Config from defaults, flags and environment variables and
// validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := &Config{
		RunAddr:       ":8080",
		LogLevel:      "info",
		PublicBaseURL: "http://localhost:8080",
		AllowedOrigin: "http://localhost:5173",

		DatabaseDSN:         "",
		DBFileName:          "",
		DBConnectionTimeout: 10 * time.Second,
		MigrationsDir:       "cmd/staybook/migrations",

		SessionCookieName: "token",
		// Development-only key. Deployments override it via SESSION_SIGNING_KEY.
		SessionSigningSecretKey: "c3RheWJvb2stZGV2LW9ubHktc2lnbmluZy1rZXk=",

		UploadsDir:    "uploads",
		MediaBucket:   "",
		UploadTimeout: 30 * time.Second,
		TrustedSubnet: "",
	}

	if !options.disableFlagsParsing {
		flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flag.StringVar(&cfg.PublicBaseURL, "b", cfg.PublicBaseURL, "public base address of the server")
		flag.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flag.StringVar(&cfg.DBFileName, "f", cfg.DBFileName, "JSON file name with database")
		flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "a string with the database connection details")
		flag.StringVar(&cfg.UploadsDir, "u", cfg.UploadsDir, "directory for locally stored photos")
		flag.StringVar(&cfg.MediaBucket, "m", cfg.MediaBucket, "object storage bucket for photos (enables the remote media backend)")
		flag.StringVar(&cfg.TrustedSubnet, "t", cfg.TrustedSubnet, "trusted subnet for the internal stats endpoint (CIDR)")
		flag.Parse()
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		cfg.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		cfg.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.PublicBaseURL != "" {
		cfg.PublicBaseURL = valuesFromEnv.PublicBaseURL
	}

	if valuesFromEnv.AllowedOrigin != "" {
		cfg.AllowedOrigin = valuesFromEnv.AllowedOrigin
	}

	if valuesFromEnv.DatabaseDSN != "" {
		cfg.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBFileName != "" {
		cfg.DBFileName = valuesFromEnv.DBFileName
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		cfg.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.MigrationsDir != "" {
		cfg.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.SessionCookieName != "" {
		cfg.SessionCookieName = valuesFromEnv.SessionCookieName
	}

	if valuesFromEnv.SessionSigningSecretKey != "" {
		cfg.SessionSigningSecretKey = valuesFromEnv.SessionSigningSecretKey
	}

	if valuesFromEnv.UploadsDir != "" {
		cfg.UploadsDir = valuesFromEnv.UploadsDir
	}

	if valuesFromEnv.MediaBucket != "" {
		cfg.MediaBucket = valuesFromEnv.MediaBucket
	}

	if valuesFromEnv.UploadTimeout != 0 {
		cfg.UploadTimeout = valuesFromEnv.UploadTimeout
	}

	if valuesFromEnv.TrustedSubnet != "" {
		cfg.TrustedSubnet = valuesFromEnv.TrustedSubnet
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
