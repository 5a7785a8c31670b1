package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/go-resty/resty/v2"
)

// HTTPConfig configures the remote CSV source.
type HTTPConfig struct {
	URL          string
	Timeout      time.Duration // per attempt
	Retries      int           // extra attempts after the first
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	Headers      map[string]string
}

// HTTPCSV fetches a catalog export over HTTP. Transport errors, 429 and 5xx
// responses are retried with backoff; other error statuses fail at once.
type HTTPCSV struct {
	client   *resty.Client
	url      string
	pipeline *ingest.Pipeline
}

// NewHTTPCSV builds the source.
func NewHTTPCSV(cfg HTTPConfig, pl *ingest.Pipeline) *HTTPCSV {
	client := resty.New().
		SetDebug(false).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(max(cfg.RetryMaxWait, cfg.RetryWait)).
		SetHeader("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1").
		SetHeaders(cfg.Headers).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= 500
		})

	return &HTTPCSV{client: client, url: cfg.URL, pipeline: pl}
}

func (s *HTTPCSV) Name() string {
	return "http:" + s.url
}

func (s *HTTPCSV) Load(ctx context.Context) (ingest.Result, error) {
	res, err := handleError(s.client.R().SetContext(ctx).Get(s.url))
	if err != nil {
		return ingest.Result{}, err
	}

	body := res.Body()
	result, err := s.pipeline.RunSized(ctx, bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return ingest.Result{}, err
	}
	result.Report.Source = s.Name()
	return result, nil
}

// handleError turns transport failures and error statuses into errors.
// resty reports neither 4xx nor 5xx responses as an error by itself.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, fmt.Errorf("fetch catalog: %w", err)
	}
	if res.IsError() {
		return res, fmt.Errorf("fetch catalog: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}
