package command

import (
	"context"
	"io"
	"strings"

	"github.com/mattermost/logr/v2"
	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/config"
	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/migrator"
	"github.com/mattermost/rocketchat-matrix-migrator/rocketchat"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// runtime is everything a migration command needs, built from the
// configuration.
type runtime struct {
	config *config.Config
	lgr    *logr.Logr
	logger *LogrLogger

	client     *matrix.Client
	admin      matrix.Credential
	serverName string

	store    *store.SQLStore
	migrator *migrator.Migrator
	export   rocketchat.Export
}

// newConnection sets up logging and the homeserver connection: the admin
// token is checked with whoami and the server name is discovered.
func newConnection(ctx context.Context, cfg *config.Config, out io.Writer) (*runtime, error) {
	lgr, err := NewLogr(out, cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set up logging")
	}
	rt := &runtime{
		config: cfg,
		lgr:    lgr,
		logger: NewLogrLogger(lgr.NewLogger()),
	}

	rateLimit := matrix.DisabledRateLimitConfig()
	if cfg.RateLimit {
		rateLimit = matrix.DefaultRateLimitConfig()
	}
	rt.client = matrix.NewClient(cfg.HomeserverURL, rt.logger, rateLimit)

	adminID, err := rt.client.WhoAmI(ctx, matrix.Credential{AccessToken: cfg.AdminAccessToken})
	if err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "admin access token was rejected")
	}
	rt.admin = matrix.Credential{UserID: adminID, AccessToken: cfg.AdminAccessToken}

	rt.serverName, err = matrix.NewServerDiscovery(rt.logger).DiscoverServerName(ctx, cfg.HomeserverURL, cfg.ServerName)
	if err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "failed to determine server name")
	}
	rt.logger.LogInfo("Connected to homeserver", "url", cfg.HomeserverURL, "admin", adminID, "server_name", rt.serverName)
	return rt, nil
}

// newRuntime validates cfg, connects, opens the mapping store and builds the
// migrator.
func newRuntime(ctx context.Context, cfg *config.Config, out io.Writer) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	rt, err := newConnection(ctx, cfg, out)
	if err != nil {
		return nil, err
	}

	rt.store, err = store.Open(cfg.DatabasePath)
	if err != nil {
		rt.Close()
		return nil, err
	}
	applied, err := rt.store.Migrate(ctx)
	if err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "failed to migrate mapping database")
	}
	if len(applied) > 0 {
		rt.logger.LogInfo("Applied database migrations", "versions", strings.Join(applied, ","))
	}

	rt.migrator, err = migrator.New(migrator.Config{
		API:           rt.client,
		Store:         rt.store,
		Logger:        rt.logger,
		ServerName:    rt.serverName,
		Admin:         rt.admin,
		AdminUsername: cfg.AdminUsername,
		ASToken:       cfg.ASToken,
		SharedSecret:  cfg.RegistrationSharedSecret,
		ExcludedUsers: cfg.ExcludedUsers,
		Concurrency:   cfg.Concurrency,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.export = rocketchat.Export{Dir: cfg.InputDir}
	return rt, nil
}

// Close releases the store and flushes the logs.
func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.LogWarn("Failed to close mapping database", "error", err.Error())
		}
		rt.store = nil
	}
	if rt.lgr != nil {
		_ = rt.lgr.Shutdown()
		rt.lgr = nil
	}
}
