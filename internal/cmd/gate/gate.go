// Package gate parses gate service flags and starts the access server.
package gate

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/platewire/boardgate/internal/platform/config"
	"github.com/platewire/boardgate/internal/platform/otel"
	server "github.com/platewire/boardgate/internal/services/access/app"
)

// Config holds gate command configuration.
type Config struct {
	HTTPAddr string `env:"BOARDGATE_HTTP_ADDR"   envDefault:"localhost:8087"`
	GRPCAddr string `env:"BOARDGATE_HEALTH_ADDR" envDefault:"localhost:8088"`
	Debug    bool   `env:"BOARDGATE_DEBUG"       envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API server address")
	fs.StringVar(&cfg.GRPCAddr, "health-addr", cfg.GRPCAddr, "gRPC health server address (empty disables)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug mode")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the access server.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "gate")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	return server.Run(ctx, cfg.HTTPAddr, cfg.GRPCAddr, cfg.Debug)
}
