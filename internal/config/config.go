// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is populated from environment variables. A .env file is honoured in
// development so local runs don't need a wall of exports.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`
	DBPath      string `envconfig:"DB_PATH" default:"data/jamreg.db"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	GitHubClientID     string `envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `envconfig:"GITHUB_CALLBACK_URL"`
	GitHubToken        string `envconfig:"GITHUB_TOKEN"` // app-level token for repo provisioning
	GitHubOwner        string `envconfig:"GITHUB_OWNER" default:"jamreg"`

	// Staff usernames allowed to review applications, comma-separated.
	StaffUsers []string `envconfig:"STAFF_USERS"`

	ParticipantRegistrationOpen bool `envconfig:"PARTICIPANT_REGISTRATION_OPEN" default:"true"`
	JudgeRegistrationOpen       bool `envconfig:"JUDGE_REGISTRATION_OPEN" default:"true"`

	// AMQP broker for the side-effect queue. Empty selects the in-process
	// queue, which is only suitable for development.
	AMQPURL      string `envconfig:"AMQP_URL"`
	TaskExchange string `envconfig:"TASK_EXCHANGE" default:"jamreg.tasks"`
	TaskQueue    string `envconfig:"TASK_QUEUE" default:"jamreg.side-effects"`
}

// IsDev reports whether we run in the development environment.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// Load reads the environment (and .env in development) into a Config and
// validates it, collecting every problem before failing.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file just means the variables come
	// from the real environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}

	var problems []string

	if len(cfg.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if (cfg.GitHubClientID == "") != (cfg.GitHubClientSecret == "") {
		problems = append(problems, "GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("config: invalid environment:\n  %s", strings.Join(problems, "\n  "))
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// IsStaff reports whether the given username is on the staff list.
func (c *Config) IsStaff(username string) bool {
	for _, s := range c.StaffUsers {
		if strings.EqualFold(s, username) {
			return true
		}
	}
	return false
}
