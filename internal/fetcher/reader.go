package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cvurl/internal/failure"
)

// maxReaderBody caps how much of a reader response is read.
const maxReaderBody = 4 << 20

// removeSelector asks the reader to drop boilerplate before converting.
const removeSelector = "nav, footer, header, aside, .ads, .advertisement, [role='banner'], [role='contentinfo']"

// ReaderConfig configures the remote reader tier.
type ReaderConfig struct {
	// Endpoint is prefixed to the target URL, e.g. https://r.jina.ai/.
	Endpoint string
	Token    string
	Timeout  time.Duration
	// WaitSelector is forwarded for profile sites so the reader waits for
	// the content region before converting.
	WaitSelector string
}

// Reader delegates rendering to a remote reader service that returns text.
type Reader struct {
	cfg    ReaderConfig
	client *http.Client
	log    *zap.Logger
}

// NewReader creates the remote reader tier. A nil client means a default
// client with no timeout of its own; the executor's deadline applies.
func NewReader(cfg ReaderConfig, client *http.Client, log *zap.Logger) *Reader {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{cfg: cfg, client: client, log: log}
}

func (r *Reader) Tier() Tier { return TierRemoteReader }

func (r *Reader) Timeout() time.Duration { return r.cfg.Timeout }

// Fetch asks the reader for req.URL as plain text. Block statuses are
// returned as a Result for the soft-failure check; other non-2xx statuses
// are network errors.
func (r *Reader) Fetch(ctx context.Context, req Request) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.Endpoint+req.URL, nil)
	if err != nil {
		return nil, failure.New(failure.InvalidInput, err)
	}
	httpReq.Header.Set("Accept", "text/plain")
	httpReq.Header.Set("X-Return-Format", "text")
	httpReq.Header.Set("X-Remove-Selector", removeSelector)
	if r.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	if req.Hint.IsProfileSite && r.cfg.WaitSelector != "" {
		httpReq.Header.Set("X-Wait-For-Selector", r.cfg.WaitSelector)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reader request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReaderBody))
	if err != nil {
		return nil, fmt.Errorf("read reader response: %w", err)
	}

	r.log.Debug("Reader response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	if !blocked(resp.StatusCode) && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, failure.Newf(failure.NetworkError, "reader returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body[:min(len(body), 200)])))
	}

	return &Result{
		Raw:        string(body),
		FinalURL:   finalURL(resp, req.URL),
		StatusCode: resp.StatusCode,
	}, nil
}

// finalURL prefers the URL the reader reports having read. Jina-style
// readers send it in a header; otherwise the requested URL stands.
func finalURL(resp *http.Response, requested string) string {
	for _, h := range []string{"X-Final-Url", "X-Url"} {
		if v := resp.Header.Get(h); v != "" {
			return v
		}
	}
	return requested
}

func blocked(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == 999
}
