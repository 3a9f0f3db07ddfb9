package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/config"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/realtime"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/registration"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/session"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/vault"
	cryptohelper "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/crypto"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/logging"
)

// app is the composition root: one process-wide cache, session and API
// client shared by every command.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	vault   *vault.Vault
	session *session.Store
	cache   *cache.Cache
	api     *api.Client
	garage  *garage.Service

	closers []func() error
}

func newApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	log := logging.New(opts.logLevel, logOut, "garagectl")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.logLevel == "" {
		log = logging.New(cfg.LogLevel, logOut, "garagectl")
	}

	a := &app{cfg: cfg, log: log, vault: vault.New(cfg.DataDir)}
	sealer, err := a.vault.Sealer()
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if a.session, err = session.Open(cfg.SessionDir(), sealer); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	store := a.openStore(ctx, sealer)
	cacheOpts := []cache.Option{
		cache.WithPolicies(cfg.Policies),
		cache.WithLogger(log.With().Str("layer", "cache").Logger()),
	}
	if store != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(store))
	}
	if m, err := cache.GetMetrics(); err != nil {
		log.Warn().Err(err).Msg("cache metrics disabled")
	} else {
		cacheOpts = append(cacheOpts, cache.WithMetrics(m))
	}
	a.cache = cache.New(cacheOpts...)

	a.api = api.New(cfg.APIURL, cfg.GatewayKey,
		api.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		api.WithTokenStore(a.session),
		api.WithLogger(log),
		api.OnSessionExpired(func() {
			a.cache.Clear(context.Background())
			log.Warn().Msg("session expired, sign in again with 'garagectl auth login'")
		}),
	)
	a.garage = garage.New(a.api,
		garage.WithCache(a.cache),
		garage.WithSession(a.session),
		garage.WithLogger(log),
	)
	return a, nil
}

// openStore builds the persistent cache layer. Entries are sealed with the
// vault key whichever backend holds them. A backend that cannot be opened,
// such as a bolt file locked by another garagectl or an unreachable redis,
// leaves the cache memory-only.
func (a *app) openStore(ctx context.Context, sealer *cryptohelper.Sealer) cache.Store {
	var inner cache.Store
	switch a.cfg.CacheBackend {
	case config.CacheMemory:
		return nil
	case config.CacheRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rs, err := cache.DialRedis(dialCtx, a.cfg.RedisAddr, a.cfg.RedisPassword)
		if err != nil {
			a.log.Warn().Err(err).Str("backend", string(a.cfg.CacheBackend)).
				Msg("persistent cache unavailable, using memory only")
			return nil
		}
		a.closers = append(a.closers, rs.Close)
		inner = rs
	default:
		bs, err := cache.OpenBolt(a.cfg.CachePath())
		if err != nil {
			a.log.Warn().Err(err).Str("backend", string(a.cfg.CacheBackend)).
				Msg("persistent cache unavailable, using memory only")
			return nil
		}
		a.closers = append(a.closers, bs.Close)
		inner = bs
	}
	return cache.NewSealedStore(inner, sealer)
}

func (a *app) registration() *registration.Flow {
	return registration.New(a.api, a.session, a.garage, registration.WithLogger(a.log))
}

// subscriber returns the change source for watch commands: the websocket
// feed, or a poller when interval is set.
func (a *app) subscriber(interval time.Duration, probe realtime.Probe) realtime.Subscriber {
	if interval > 0 {
		return realtime.NewPoller(interval, probe, realtime.WithPollerLogger(a.log))
	}
	feed := realtime.NewFeed(a.cfg.APIURL, a.feedHeaders,
		realtime.WithFeedLogger(a.log))
	a.closers = append(a.closers, feed.Close)
	return feed
}

func (a *app) feedHeaders() http.Header {
	c := a.api.Credentials()
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.GatewayKey)
	if c.UserToken != "" {
		h.Set(api.HeaderAccessToken, c.UserToken)
	}
	return h
}

// runCleanup sweeps expired cache entries until ctx ends. Long-running
// commands start it.
func (a *app) runCleanup(ctx context.Context) {
	go a.cache.Run(ctx, a.cfg.CleanupEvery)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
