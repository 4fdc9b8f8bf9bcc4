package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-media/internal/config"
	"github.com/sells-group/brand-media/internal/store"
	"github.com/sells-group/brand-media/pkg/apify"
)

// initStore opens the store selected by store.driver.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case store.DriverSQLite:
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "brand-media.db"
		}
		return store.NewSQLite(dsn)
	case store.DriverPostgres:
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	case store.DriverFTP:
		return store.NewFTP(store.FTPOptions{
			Addr:     c.Store.FTP.Addr,
			User:     c.Store.FTP.User,
			Password: c.Store.FTP.Password,
			Root:     c.Store.FTP.Root,
			Timeout:  time.Duration(c.Store.FTP.TimeoutSecs) * time.Second,
		})
	case store.DriverApify:
		return store.NewApify(newApifyClient(c)), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

func newApifyClient(c *config.Config) apify.Client {
	var opts []apify.Option
	if c.Apify.BaseURL != "" {
		opts = append(opts, apify.WithBaseURL(c.Apify.BaseURL))
	}
	return apify.NewClient(c.Apify.Token, opts...)
}
