package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxRawBody = 8 << 20

// RawConfig configures the raw socket tier.
type RawConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Raw is the last-resort plain GET. It returns markup only and relies on
// the transport's default redirect handling.
type Raw struct {
	cfg    RawConfig
	client *http.Client
	log    *zap.Logger
}

// NewRaw creates the raw socket tier.
func NewRaw(cfg RawConfig, client *http.Client, log *zap.Logger) *Raw {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Raw{cfg: cfg, client: client, log: log}
}

func (r *Raw) Tier() Tier { return TierRawSocket }

func (r *Raw) Timeout() time.Duration { return r.cfg.Timeout }

func (r *Raw) Fetch(ctx context.Context, req Request) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", r.cfg.UserAgent)
	httpReq.Header.Set("Accept", browserAccept)
	httpReq.Header.Set("Accept-Language", acceptLanguage)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("raw fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRawBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	r.log.Debug("Raw response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))

	return &Result{
		Raw:        string(body),
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}, nil
}
