package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blacktop/cohostpost/internal/cohostpost"
	"github.com/sethvargo/go-envconfig"
)

const (
	EnvUse       = "COHOSTPOST_USE"
	EnvEmail     = "COHOSTPOST_EMAIL"
	EnvPassword  = "COHOSTPOST_PASSWORD"
	EnvHandle    = "COHOSTPOST_HANDLE"
	EnvUserAgent = "COHOSTPOST_USER_AGENT"
	EnvAPIURL    = "COHOSTPOST_API_URL"
	EnvUploadURL = "COHOSTPOST_UPLOAD_URL"
	EnvTimeout   = "COHOSTPOST_TIMEOUT"
)

// Config holds everything the cohost integration reads from the environment.
type Config struct {
	Use       bool          `env:"COHOSTPOST_USE,default=false"`
	Email     string        `env:"COHOSTPOST_EMAIL"`
	Password  string        `env:"COHOSTPOST_PASSWORD"`
	Handle    string        `env:"COHOSTPOST_HANDLE"`
	UserAgent string        `env:"COHOSTPOST_USER_AGENT,default=cohostpost/1"`
	APIURL    string        `env:"COHOSTPOST_API_URL,default=https://cohost.org/api/v1/trpc"`
	UploadURL string        `env:"COHOSTPOST_UPLOAD_URL,default=https://staging.cohostcdn.org/redcent-dev"`
	Timeout   time.Duration `env:"COHOSTPOST_TIMEOUT,default=30s"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration through an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &cfg, l); err != nil {
		return Config{}, fmt.Errorf("parsing env vars: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Email = strings.TrimSpace(c.Email)
	c.Handle = strings.TrimPrefix(strings.TrimSpace(c.Handle), "@")
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.UploadURL = strings.TrimSpace(c.UploadURL)
}

// Validate reports missing credentials. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Use {
		return nil
	}

	var missing []string
	if c.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if c.Email == "" {
		missing = append(missing, EnvEmail)
	}

	if len(missing) > 0 {
		return cohostpost.MissingEnvError{Provider: cohostpost.ProviderName, Variables: missing}
	}
	return nil
}
