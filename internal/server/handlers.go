package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cvurl/internal/capability"
	"cvurl/internal/failure"
	"cvurl/internal/fetcher"
	"cvurl/internal/pipeline"
)

// ExtractRequest is the POST body.
type ExtractRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode,omitempty"`
}

// SuccessResponse is returned with 200.
type SuccessResponse struct {
	Text        string `json:"text"`
	ProfileType string `json:"profile_type"`
	Success     bool   `json:"success"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Success bool   `json:"success"`
}

// HealthResponse reports the tiers detected at start-up.
type HealthResponse struct {
	Status                 string   `json:"status"`
	Service                string   `json:"service"`
	Version                string   `json:"version"`
	FetchEngineAvailable   bool     `json:"fetch_engine_available"`
	BrowserReady           bool     `json:"browser_ready"`
	RemoteReaderConfigured bool     `json:"remote_reader_configured"`
	Tiers                  []string `json:"tiers"`
}

type handlers struct {
	extractor Extractor
	caps      capability.Set
	version   string
	log       *zap.Logger
}

func (h *handlers) extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, failure.New(failure.InvalidInput, err))
		return
	}
	mode, err := fetcher.ParseMode(req.Mode)
	if err != nil {
		h.reject(c, failure.New(failure.InvalidInput, err))
		return
	}

	out := h.extractor.Extract(c.Request.Context(), pipeline.Request{URL: req.URL, Mode: mode})
	if !out.OK {
		if out.Err != nil {
			_ = c.Error(out.Err)
		}
		c.JSON(failure.HTTPStatus(out.Reason), errorResponse{
			Error: out.Message,
			Kind:  string(out.Reason),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Text:        out.Text,
		ProfileType: out.ProfileType(),
		Success:     true,
	})
}

func (h *handlers) reject(c *gin.Context, err *failure.Error) {
	h.log.Debug("Rejected request", zap.Error(err), zap.String(requestIDKey, c.GetString(requestIDKey)))
	c.JSON(failure.HTTPStatus(err.Kind), errorResponse{
		Error: failure.Message(err.Kind),
		Kind:  string(err.Kind),
	})
}

func (h *handlers) health(c *gin.Context) {
	status := "ok"
	if !h.caps.AnyFetcher() {
		status = "degraded"
	}
	tiers := h.caps.Tiers()
	if tiers == nil {
		tiers = []string{}
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:                 status,
		Service:                ServiceName,
		Version:                h.version,
		FetchEngineAvailable:   h.caps.StealthReady || h.caps.LightInstalled,
		BrowserReady:           h.caps.StealthReady,
		RemoteReaderConfigured: h.caps.ReaderConfigured,
		Tiers:                  tiers,
	})
}
