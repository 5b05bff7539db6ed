package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shaurya/grail/config"
)

// Pools holds the primary connection pool and an optional read replica.
type Pools struct {
	Primary *sql.DB
	Replica *sql.DB
}

// DB holds the global pools. Installed once at startup by Connect (or
// SetPools in tests), read-only afterwards.
var DB *Pools

func (p *Pools) route(op Op, forced bool) *sql.DB {
	if op == OpRead && !forced && p.Replica != nil {
		return p.Replica
	}
	return p.Primary
}

// SetPools installs pre-built pools. Used by tests and by callers that
// manage their own *sql.DB.
func SetPools(p *Pools) {
	DB = p
}

// Connect establishes the PostgreSQL pools through the pgx stdlib driver.
func Connect(cfg config.DatabaseConfig) (*Pools, error) {
	primary, err := open(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode, cfg.Pool)
	if err != nil {
		return nil, err
	}

	pools := &Pools{Primary: primary}

	if cfg.Replica.Enabled() {
		replica, err := open(cfg.Replica.Host, cfg.Replica.Port, cfg.Replica.User,
			cfg.Replica.Password, cfg.Replica.Name, cfg.SSLMode, cfg.Replica.Pool)
		if err != nil {
			return nil, err
		}
		pools.Replica = replica
	}

	if cfg.SlowQueryMs > 0 {
		SetSlowQueryThreshold(time.Duration(cfg.SlowQueryMs) * time.Millisecond)
	}

	DB = pools
	return pools, nil
}

func open(host string, port int, user, password, name, sslMode string, pool int) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		host, user, password, name, port, sslMode)

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("[Grail] ERROR: Cannot connect to PostgreSQL at %s:%d — %v", host, port, err)
	}

	if pool > 0 {
		sqlDB.SetMaxIdleConns(pool / 2)
		sqlDB.SetMaxOpenConns(pool)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Ping and fail fast
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("[Grail] ERROR: Cannot connect to PostgreSQL at %s:%d — %v", host, port, err)
	}

	return sqlDB, nil
}

// MustConnect connects or exits.
func MustConnect(cfg config.DatabaseConfig) *Pools {
	pools, err := Connect(cfg)
	if err != nil {
		log.Fatalf("%s", err.Error())
	}
	return pools
}
