package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/rxintake/configx"
)

// Defaults are the lowest priority configuration source
var Defaults = map[string]any{
	"server.port":                  8080,
	"server.body_limit_mb":         16,
	"server.read_timeout":          "30s",
	"server.write_timeout":         "90s",
	"auth.audience":                "authenticated",
	"storage.driver":               "local",
	"storage.local_dir":            "./uploads",
	"storage.public_base":          "http://localhost:8080/uploads",
	"extraction.provider":          "openai",
	"extraction.max_tokens":        8192,
	"extraction.timeout":           "60s",
	"extraction.image_mode":        "url",
	"database.driver":              "postgres",
	"database.mongo_db":            "rxintake",
	"persistence.atomic_medicines": false,
	"persistence.merge_attempts":   3,
	"sessions.ttl":                 "30m",
	"sessions.sweep_interval":      "1m",
	"events.driver":                "none",
	"log.level":                    "info",
	"log.format":                   "console",
}

type ServerConfig struct {
	Port         int
	BodyLimitMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type StorageConfig struct {
	Driver     string
	LocalDir   string
	PublicBase string
	Bucket     string
	Region     string
	Endpoint   string
	PathStyle  bool
	PublicRead bool
}

type ExtractionConfig struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	ImageMode string
}

type DatabaseConfig struct {
	Driver   string
	DSN      string
	MongoURI string
	MongoDB  string
}

type EventsConfig struct {
	Driver   string
	QueueURL string
	Region   string
	Endpoint string
}

// Config is the typed view of every setting the service reads
type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Database   DatabaseConfig
	Events     EventsConfig

	AtomicMedicines bool
	MergeAttempts   int

	SessionTTL    time.Duration
	SweepInterval time.Duration

	LogLevel  string
	LogFormat string
}

// LoadConfig merges defaults, .env and RX_ environment variables. overrides
// sit between .env and the environment and may be nil.
func LoadConfig(dotenv string, overrides map[string]any) (Config, error) {
	b := configx.NewBuilder().
		WithDefaults(Defaults).
		FromDotEnv(dotenv).
		FromEnv("RX_").
		Require("auth.jwt_secret").
		WithValidation(validate)
	if overrides != nil {
		b = b.FromMap(overrides, "overrides")
	}

	raw, err := b.Build()
	if err != nil {
		return Config{}, err
	}
	return fromConfigx(raw), nil
}

func fromConfigx(c configx.Config) Config {
	return Config{
		Server: ServerConfig{
			Port:         c.Get("server.port").AsIntDefault(8080),
			BodyLimitMB:  c.Get("server.body_limit_mb").AsIntDefault(16),
			ReadTimeout:  c.Get("server.read_timeout").AsDurationDefault(30 * time.Second),
			WriteTimeout: c.Get("server.write_timeout").AsDurationDefault(90 * time.Second),
		},
		Auth: AuthConfig{
			Secret:   c.Get("auth.jwt_secret").AsString(),
			Issuer:   c.Get("auth.issuer").AsString(),
			Audience: c.Get("auth.audience").AsString(),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(c.Get("storage.driver").AsString()),
			LocalDir:   c.Get("storage.local_dir").AsString(),
			PublicBase: c.Get("storage.public_base").AsString(),
			Bucket:     c.Get("storage.bucket").AsString(),
			Region:     c.Get("storage.region").AsString(),
			Endpoint:   c.Get("storage.endpoint").AsString(),
			PathStyle:  c.Get("storage.path_style").AsBoolDefault(false),
			PublicRead: c.Get("storage.public_read").AsBoolDefault(false),
		},
		Extraction: ExtractionConfig{
			Provider:  strings.ToLower(c.Get("extraction.provider").AsString()),
			APIKey:    c.Get("extraction.api_key").AsString(),
			BaseURL:   c.Get("extraction.base_url").AsString(),
			Model:     c.Get("extraction.model").AsString(),
			MaxTokens: c.Get("extraction.max_tokens").AsIntDefault(8192),
			Timeout:   c.Get("extraction.timeout").AsDurationDefault(60 * time.Second),
			ImageMode: strings.ToLower(c.Get("extraction.image_mode").AsString()),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(c.Get("database.driver").AsString()),
			DSN:      c.Get("database.dsn").AsString(),
			MongoURI: c.Get("database.mongo_uri").AsString(),
			MongoDB:  c.Get("database.mongo_db").AsString(),
		},
		Events: EventsConfig{
			Driver:   strings.ToLower(c.Get("events.driver").AsString()),
			QueueURL: c.Get("events.queue_url").AsString(),
			Region:   c.Get("events.region").AsString(),
			Endpoint: c.Get("events.endpoint").AsString(),
		},
		AtomicMedicines: c.Get("persistence.atomic_medicines").AsBoolDefault(false),
		MergeAttempts:   c.Get("persistence.merge_attempts").AsIntDefault(3),
		SessionTTL:      c.Get("sessions.ttl").AsDurationDefault(30 * time.Minute),
		SweepInterval:   c.Get("sessions.sweep_interval").AsDurationDefault(time.Minute),
		LogLevel:        c.Get("log.level").AsString(),
		LogFormat:       c.Get("log.format").AsString(),
	}
}

func oneOf(c configx.Config, key string, allowed ...string) error {
	v := strings.ToLower(c.Get(key).AsString())
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), v)
}

func validate(c configx.Config) error {
	checks := []struct {
		key     string
		allowed []string
	}{
		{"storage.driver", []string{"local", "s3"}},
		{"extraction.provider", []string{"openai", "anthropic"}},
		{"extraction.image_mode", []string{"url", "inline"}},
		{"database.driver", []string{"postgres", "mongo", "memory"}},
		{"events.driver", []string{"none", "memory", "sqs"}},
	}
	for _, check := range checks {
		if err := oneOf(c, check.key, check.allowed...); err != nil {
			return err
		}
	}

	need := func(when, key string) error {
		if strings.TrimSpace(c.Get(key).AsString()) == "" {
			return fmt.Errorf("%s is required when %s", key, when)
		}
		return nil
	}
	if strings.ToLower(c.Get("storage.driver").AsString()) == "s3" {
		if err := need("storage.driver=s3", "storage.bucket"); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Get("database.driver").AsString()) {
	case "postgres":
		if err := need("database.driver=postgres", "database.dsn"); err != nil {
			return err
		}
	case "mongo":
		if err := need("database.driver=mongo", "database.mongo_uri"); err != nil {
			return err
		}
	}
	if strings.ToLower(c.Get("events.driver").AsString()) == "sqs" {
		if err := need("events.driver=sqs", "events.queue_url"); err != nil {
			return err
		}
	}
	return nil
}
