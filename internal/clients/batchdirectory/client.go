package batchdirectory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/platform/ctxutil"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
)

const lookupPath = "/v1/batches/lookup"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client asks the batch lifecycle service for batch state over HTTP.
type Client struct {
	http *resty.Client
	log  *logger.Logger
}

type lookupRequest struct {
	BatchIDs []string `json:"batchIds"`
}

type lookupResponse struct {
	Batches []*types.CourseBatch `json:"batches"`
}

func New(cfg Config, baseLog *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("batch directory base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: hc, log: baseLog.With("client", "BatchDirectory")}, nil
}

// LookupBatches resolves ids in one round trip. Ids the directory does not
// know are absent from the result.
func (c *Client) LookupBatches(ctx context.Context, batchIDs []string) (map[string]*types.CourseBatch, error) {
	out := make(map[string]*types.CourseBatch, len(batchIDs))
	if len(batchIDs) == 0 {
		return out, nil
	}

	var body lookupResponse
	req := c.http.R().
		SetContext(ctx).
		SetBody(lookupRequest{BatchIDs: batchIDs}).
		SetResult(&body)
	if rid := ctxutil.RequestID(ctx); rid != "" {
		req.SetHeader("X-Request-Id", rid)
	}
	resp, err := req.Post(lookupPath)
	if err != nil {
		return nil, fmt.Errorf("batch lookup: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return out, nil
	}
	if resp.IsError() {
		c.log.Warn("batch lookup failed", "status", resp.StatusCode(), "body", truncate(resp.String(), 256))
		return nil, fmt.Errorf("batch lookup: status %d", resp.StatusCode())
	}

	for _, b := range body.Batches {
		if b == nil || b.BatchID == "" {
			continue
		}
		out[b.BatchID] = b
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
