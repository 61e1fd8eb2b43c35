// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/models"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Reload outcomes, used as the metrics label.
const (
	ReloadSwapped   = "swapped"
	ReloadUnchanged = "unchanged"
	ReloadFailed    = "failed"
	ReloadThrottled = "throttled"
)

// PolicyLoader builds a registry from the policies source.
type PolicyLoader interface {
	Load() (*navigation.Registry, error)
}

// RegistrySwapper publishes registries. Satisfied by *navigation.RegistryHolder.
type RegistrySwapper interface {
	Current() *navigation.Registry
	Swap(next *navigation.Registry) (previous *navigation.Registry, changed bool)
}

// Invalidator drops cached decisions. Satisfied by *cache.DecisionCache.
type Invalidator interface {
	Invalidate()
}

// PolicyReloadConfig configures PolicyReloadService.
type PolicyReloadConfig struct {
	// Interval polls the source. Zero disables polling.
	Interval time.Duration

	// MinGap is the minimum spacing between triggered reloads.
	MinGap time.Duration

	// WatchPath reloads when this file changes. Empty disables watching.
	WatchPath string
}

// PolicyReloadConfigFrom maps the policies config section.
func PolicyReloadConfigFrom(cfg config.PoliciesConfig) PolicyReloadConfig {
	rc := PolicyReloadConfig{
		Interval: cfg.ReloadInterval,
		MinGap:   cfg.MinReloadGap,
	}
	if cfg.Watch {
		rc.WatchPath = cfg.Path
	}
	return rc
}

// PolicyReloadService keeps the mode registry in sync with the policies file.
//
// Three things trigger a load: the poll ticker, file change events, and
// explicit Reload calls from the API. Loads are serialized. A registry with
// the same policies hash is not swapped, and a failed load leaves the
// current registry in place. Triggered reloads share one token bucket so a
// burst of file events or API calls costs at most one load per MinGap.
type PolicyReloadService struct {
	loader  PolicyLoader
	holder  RegistrySwapper
	cache   Invalidator
	cfg     PolicyReloadConfig
	limiter *rate.Limiter
	trigger chan struct{}
	watch   func(path string, cb func()) (func() error, error)
	now     func() time.Time

	mu      sync.Mutex // serializes loads
	errMu   sync.RWMutex
	lastErr error
	name    string
}

// NewPolicyReloadService creates the service. cache may be nil.
func NewPolicyReloadService(loader PolicyLoader, holder RegistrySwapper, cache Invalidator, cfg PolicyReloadConfig) *PolicyReloadService {
	if cfg.MinGap <= 0 {
		cfg.MinGap = time.Second
	}
	return &PolicyReloadService{
		loader:  loader,
		holder:  holder,
		cache:   cache,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinGap), 1),
		trigger: make(chan struct{}, 1),
		watch:   config.WatchConfigFile,
		now:     time.Now,
		name:    "policy-reload",
	}
}

// Reload runs a load now unless one ran within MinGap, in which case the
// result has Throttled set and describes the current registry.
func (s *PolicyReloadService) Reload(ctx context.Context) (models.ReloadResult, error) {
	if !s.limiter.Allow() {
		metrics.RecordPolicyReload(ReloadThrottled, 0)
		cur := s.holder.Current()
		return models.ReloadResult{
			Throttled:    true,
			PoliciesHash: cur.PoliciesHash(),
			Modes:        cur.Len(),
			ReloadedAt:   cur.LoadedAt(),
		}, nil
	}
	return s.reload(ctx, "api")
}

// Trigger requests an asynchronous reload. Requests coalesce while one is
// pending.
func (s *PolicyReloadService) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// LastError returns the error of the most recent load, or nil.
func (s *PolicyReloadService) LastError() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

func (s *PolicyReloadService) setLastError(err error) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

func (s *PolicyReloadService) reload(ctx context.Context, source string) (models.ReloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.ReloadResult{}, err
	}

	next, err := s.loader.Load()
	if err != nil {
		s.setLastError(err)
		metrics.RecordPolicyReload(ReloadFailed, 0)
		logging.Warn().Err(err).Str("source", source).Msg("Policy reload failed, keeping current modes")
		return models.ReloadResult{}, fmt.Errorf("reload policies: %w", err)
	}
	s.setLastError(nil)

	prev, changed := s.holder.Swap(next)
	cur := s.holder.Current()
	result := models.ReloadResult{
		Changed:      changed,
		PoliciesHash: cur.PoliciesHash(),
		Modes:        cur.Len(),
		ReloadedAt:   s.now(),
	}

	if !changed {
		metrics.RecordPolicyReload(ReloadUnchanged, cur.Len())
		logging.Debug().Str("source", source).Str("policies_hash", cur.PoliciesHash()).Msg("Policies unchanged")
		return result, nil
	}

	if s.cache != nil {
		s.cache.Invalidate()
	}
	metrics.RecordPolicyReload(ReloadSwapped, cur.Len())

	event := logging.Info().
		Str("source", source).
		Str("policies_hash", cur.PoliciesHash()).
		Int("modes", cur.Len())
	if prev != nil {
		event = event.Str("previous_hash", prev.PoliciesHash())
	}
	event.Msg("Policies reloaded")
	return result, nil
}

// Serve implements suture.Service.
func (s *PolicyReloadService) Serve(ctx context.Context) error {
	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	if s.cfg.WatchPath != "" {
		stop, err := s.watch(s.cfg.WatchPath, s.Trigger)
		if err != nil {
			logging.Warn().Err(err).Str("path", s.cfg.WatchPath).Msg("Policy file watch unavailable, relying on polling")
		} else {
			defer func() {
				if err := stop(); err != nil {
					logging.Debug().Err(err).Msg("Policy file unwatch failed")
				}
			}()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tick:
			// Load errors are recorded; the service keeps running.
			_, _ = s.reload(ctx, "interval")

		case <-s.trigger:
			if err := s.limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
			_, _ = s.reload(ctx, "watch")
		}
	}
}

// String names the service in supervisor logs.
func (s *PolicyReloadService) String() string {
	return s.name
}
