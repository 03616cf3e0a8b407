// Package app wires the client core together with an explicit lifecycle:
// one Runtime per process, built at startup, closed at exit. Nothing in the
// core lives in package-level state.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/files"
	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/session"
	"github.com/medvault/medvault/internal/transport"
	"github.com/medvault/medvault/pkg/logging"
)

// Runtime owns the session, the record mirror and the transfer subsystem.
type Runtime struct {
	Config   *config.Config
	Logger   *logging.Logger
	Session  *session.Manager
	Records  *records.Cache
	Files    *files.Transfer
	Registry *prometheus.Registry

	store session.Store
}

// New builds the dependency graph: config → logger → credential store →
// session → transport → mirror → transfer.
func New(cfg *config.Config) (*Runtime, error) {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	var store session.Store
	switch cfg.SessionStore {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("app: MEDVAULT_SESSION_STORE=redis requires MEDVAULT_REDIS_ADDR")
		}
		store = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisTLS)
	case "file", "":
		store = session.NewFileStore(cfg.StateDir)
	default:
		return nil, fmt.Errorf("app: unknown session store %q", cfg.SessionStore)
	}

	registry := prometheus.NewRegistry()
	sess := session.NewManager(store, logger.With("component", "session"))
	tc := transport.New(cfg.APIBaseURL, cfg.HTTPTimeout, sess,
		logger.With("component", "transport"), transport.NewMetrics(registry))
	sess.SetTransport(tc)

	cache := records.NewCache(tc, logger.With("component", "records"))
	transfer := files.NewTransfer(tc, cache, cfg.PreviewAddr, cfg.PreviewGrace,
		logger.With("component", "files"))

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		Session:  sess,
		Records:  cache,
		Files:    transfer,
		Registry: registry,
		store:    store,
	}, nil
}

// Logout ends the session and wipes the record mirror with it; cached
// patient data must not outlive the credential.
func (r *Runtime) Logout(ctx context.Context) {
	r.Session.Logout(ctx)
	r.Records.Clear()
}

// Close tears the runtime down.
func (r *Runtime) Close() error {
	err := r.Files.Close()
	if closer, ok := r.store.(interface{ Close() error }); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
