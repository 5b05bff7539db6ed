// Package grail wires the configuration, logging, database and cache
// subsystems into one application handle. Model definitions live in the
// orm package; this package only boots the machinery they run on.
package grail

import (
	"log"
	"os"

	"github.com/shaurya/grail/cache"
	"github.com/shaurya/grail/config"
	"github.com/shaurya/grail/db"
	"github.com/shaurya/grail/logging"
	"go.uber.org/zap"
)

// App holds the booted framework services.
type App struct {
	Config *config.Config
	Pools  *db.Pools
	Cache  cache.Cache
	Log    *zap.Logger
}

// New loads configuration and returns an unbooted application.
func New() *App {
	cfg, err := config.Load()
	if err != nil {
		// In case the config file is not found, use defaults
		cfg = &config.Config{
			App: config.AppConfig{
				Name: "MyApp",
				Env:  "development",
			},
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = cfg.App.Env
		if env == "" {
			env = "development"
		}
		os.Setenv("APP_ENV", env)
	}
	cfg.App.Env = env

	return &App{Config: cfg}
}

// Boot initializes all application subsystems in order.
func (a *App) Boot() error {
	logging.Init()
	a.Log = logging.Log
	a.Log.Info("Booting Grail...")

	pools, err := db.Connect(a.Config.Database)
	if err != nil {
		return err
	}
	a.Pools = pools

	switch a.Config.Cache.Adapter {
	case "redis":
		adapter, err := cache.NewRedisAdapter(a.Config.Redis)
		if err != nil {
			return err
		}
		a.Cache = adapter
	default:
		a.Cache = cache.NewMemoryAdapter()
	}

	a.Log.Info("Grail booted successfully",
		zap.String("env", a.Config.App.Env),
		zap.Bool("replica", a.Pools.Replica != nil))
	return nil
}

// MustBoot boots or exits.
func (a *App) MustBoot() *App {
	if err := a.Boot(); err != nil {
		log.Fatalf("[Grail] ERROR: %v", err)
	}
	return a
}
