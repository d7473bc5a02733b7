package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/config"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/resilience"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/store"
)

// initStore opens and migrates the configured run store, retrying transient
// connection errors.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite", "postgres":
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}

	retry := resilience.DefaultRetryConfig()
	if sc.ConnectAttempts > 0 {
		retry.MaxAttempts = sc.ConnectAttempts
	}
	retry.OnRetry = resilience.RetryLogger("store", "open "+sc.Driver)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
		return openStore(ctx, sc)
	})
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "sarmoran.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns})
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
