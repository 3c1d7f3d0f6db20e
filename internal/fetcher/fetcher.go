// Package fetcher selects and runs the fetch tier for a URL.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cvurl/internal/capability"
	"cvurl/internal/domain"
	"cvurl/internal/failure"
)

// Observer receives per-fetch timings.
type Observer interface {
	ObserveFetch(tier, result string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, string, time.Duration) {}

// Executor picks a tier by policy and runs it.
type Executor struct {
	caps       capability.Set
	strategies map[Tier]Strategy
	log        *zap.Logger
	obs        Observer
}

// NewExecutor registers strategies. A tier without a registered strategy
// is never selected, whatever caps says.
func NewExecutor(caps capability.Set, log *zap.Logger, obs Observer, strategies ...Strategy) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	e := &Executor{
		caps:       caps,
		strategies: make(map[Tier]Strategy, len(strategies)),
		log:        log,
		obs:        obs,
	}
	for _, s := range strategies {
		e.strategies[s.Tier()] = s
	}
	return e
}

// Ready reports whether tier t can be selected.
func (e *Executor) Ready(t Tier) bool {
	if _, ok := e.strategies[t]; !ok {
		return false
	}
	switch t {
	case TierStealth:
		return e.caps.StealthReady
	case TierRemoteReader:
		return e.caps.ReaderConfigured
	case TierLight:
		return e.caps.LightInstalled
	case TierRawSocket:
		return e.caps.RawEnabled
	}
	return false
}

// Select returns the first tier the policy allows:
//
//  1. stealth, when the URL needs it and a browser is ready
//  2. the remote reader, when configured (skipped by ModeFast for URLs that
//     do not need stealth)
//  3. CapabilityUnavailable, when the URL needs stealth
//  4. light
//  5. raw socket, only when light is not installed
func (e *Executor) Select(hint domain.Hint, mode Mode) (Tier, error) {
	if mode == ModeStealth {
		hint.StealthRequired = true
	}
	if hint.StealthRequired && e.Ready(TierStealth) {
		return TierStealth, nil
	}
	if e.Ready(TierRemoteReader) && (mode != ModeFast || hint.StealthRequired) {
		return TierRemoteReader, nil
	}
	if hint.StealthRequired {
		return 0, failure.Newf(failure.CapabilityUnavailable, "stealth required but no rendering tier is ready")
	}
	if e.Ready(TierLight) {
		return TierLight, nil
	}
	if e.Ready(TierRawSocket) {
		return TierRawSocket, nil
	}
	return 0, failure.Newf(failure.CapabilityUnavailable, "no fetch tier is installed")
}

// Fetch selects a tier for req and runs it.
func (e *Executor) Fetch(ctx context.Context, req Request, mode Mode) (*Result, error) {
	if mode == ModeStealth {
		req.Hint.StealthRequired = true
	}
	tier, err := e.Select(req.Hint, mode)
	if err != nil {
		return nil, err
	}
	return e.FetchTier(ctx, tier, req)
}

// FetchTier runs one tier under its own timeout. Every error it returns is
// a *failure.Error.
func (e *Executor) FetchTier(ctx context.Context, tier Tier, req Request) (*Result, error) {
	s, ok := e.strategies[tier]
	if !ok {
		return nil, failure.Newf(failure.CapabilityUnavailable, "tier %s is not registered", tier)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout())
	defer cancel()

	log := e.log.With(zap.Stringer("tier", tier), zap.String("url", req.URL))
	log.Debug("Fetching", zap.Duration("timeout", s.Timeout()))

	start := time.Now()
	res, err := e.run(ctx, s, req)
	elapsed := time.Since(start)

	if err != nil {
		err = classify(ctx, err)
		e.obs.ObserveFetch(tier.String(), string(failure.KindOf(err)), elapsed)
		log.Info("Fetch failed",
			zap.String("kind", string(failure.KindOf(err))),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	res.Tier = tier
	e.obs.ObserveFetch(tier.String(), "ok", elapsed)
	log.Debug("Fetched",
		zap.Int("status", res.StatusCode),
		zap.String("final_url", res.FinalURL),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (e *Executor) run(ctx context.Context, s Strategy, req Request) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failure.New(failure.InternalError, fmt.Errorf("tier %s panicked: %v", s.Tier(), r))
		}
	}()
	res, err = s.Fetch(ctx, req)
	if err == nil && res == nil {
		err = errors.New("strategy returned no result")
	}
	return res, err
}
