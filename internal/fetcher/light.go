package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"cvurl/internal/document"
)

const browserAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// LightConfig configures the light tier.
type LightConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Light is a non-rendering HTTP fetch that follows redirects.
type Light struct {
	cfg LightConfig
	log *zap.Logger
}

// NewLight creates the light tier.
func NewLight(cfg LightConfig, log *zap.Logger) *Light {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Light{cfg: cfg, log: log}
}

func (l *Light) Tier() Tier { return TierLight }

func (l *Light) Timeout() time.Duration { return l.cfg.Timeout }

// Fetch downloads req.URL. Error statuses still produce a Result so that
// block pages can be told apart from transport failures.
func (l *Light) Fetch(ctx context.Context, req Request) (*Result, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(l.cfg.UserAgent),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(l.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", browserAccept)
		r.Headers.Set("Accept-Language", acceptLanguage)
	})

	var (
		res      *Result
		parseErr error
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		finalURL := r.Request.URL.String()
		doc, err := document.FromHTML(string(r.Body), finalURL, r.StatusCode)
		if err != nil {
			parseErr = err
			return
		}
		res = &Result{
			Document:   doc,
			Raw:        string(r.Body),
			FinalURL:   finalURL,
			StatusCode: r.StatusCode,
		}
		l.log.Debug("Light response",
			zap.String("final_url", finalURL),
			zap.Int("status", r.StatusCode),
			zap.Int("bytes", len(r.Body)),
		)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(req.URL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	switch {
	case res != nil:
		return res, nil
	case parseErr != nil:
		return nil, parseErr
	case fetchErr != nil:
		return nil, fmt.Errorf("light fetch: %w", fetchErr)
	default:
		return nil, fmt.Errorf("light fetch: no response for %s", req.URL)
	}
}
