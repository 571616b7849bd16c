package ceremony

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Kind describes the ceremony purpose.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindAssertion    Kind = "assertion"
)

// Config controls WebAuthn relying party settings.
type Config struct {
	RPDisplayName string        `env:"BOARDGATE_WEBAUTHN_RP_DISPLAY_NAME" envDefault:"Boardgate"`
	RPID          string        `env:"BOARDGATE_WEBAUTHN_RP_ID"           envDefault:"localhost"`
	RPOrigins     []string      `env:"BOARDGATE_WEBAUTHN_RP_ORIGINS"      envSeparator:","`
	SessionTTL    time.Duration `env:"BOARDGATE_WEBAUTHN_SESSION_TTL"     envDefault:"5m"`
}

// LoadConfigFromEnv returns ceremony configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{
			RPDisplayName: "Boardgate",
			RPID:          "localhost",
			RPOrigins:     []string{"http://localhost:8087"},
			SessionTTL:    5 * time.Minute,
		}
	}
	if cfg.RPDisplayName == "" {
		cfg.RPDisplayName = "Boardgate"
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"http://localhost:8087"}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 5 * time.Minute
	}
	return cfg
}
