package blockbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pali-wallet/palid/pkg/circuitbreaker"
	"github.com/pali-wallet/palid/pkg/explorer"
	"github.com/pali-wallet/palid/pkg/httputil"
	"github.com/pali-wallet/palid/pkg/stats"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

const (
	// DefaultRateLimit is the max number of requests per second made to the
	// indexer when not specified.
	DefaultRateLimit = 10

	apiPrefix = "/api/v2"
)

// Opts defines the parameters to create a new blockbook service.
type Opts struct {
	URL string
	// RateLimit is the max number of requests per second.
	RateLimit int
	// SkipHealthCheck avoids contacting the indexer at creation.
	SkipHealthCheck bool
}

func (o Opts) validate() error {
	if len(o.URL) <= 0 {
		return fmt.Errorf("missing blockbook url")
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

type blockbook struct {
	apiURL  string
	limiter ratelimit.Limiter
	cb      *gobreaker.CircuitBreaker
}

// NewService returns a new blockbook client as an explorer.Service interface.
func NewService(opts Opts) (explorer.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	rateLimit := opts.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}

	service := &blockbook{
		apiURL:  strings.TrimRight(opts.URL, "/"),
		limiter: ratelimit.New(rateLimit),
		cb:      circuitbreaker.NewCircuitBreaker(fmt.Sprintf("blockbook %s", opts.URL)),
	}

	if !opts.SkipHealthCheck {
		if _, err := service.GetBlockHeight(context.Background()); err != nil {
			return nil, fmt.Errorf("health check: %w", err)
		}
	}

	return service, nil
}

type response struct {
	status int
	body   string
}

// get performs a GET request towards the given api path and decodes the
// response into out, if not nil.
func (b *blockbook) get(ctx context.Context, endpoint, path string, out interface{}) error {
	return b.call(ctx, http.MethodGet, endpoint, path, "", out)
}

func (b *blockbook) post(ctx context.Context, endpoint, path, body string, out interface{}) error {
	return b.call(ctx, http.MethodPost, endpoint, path, body, out)
}

func (b *blockbook) call(
	ctx context.Context, method, endpoint, path, body string, out interface{},
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.limiter.Take()

	url := fmt.Sprintf("%s%s%s", b.apiURL, apiPrefix, path)
	header := map[string]string{"Accept": "application/json"}
	if method == http.MethodPost {
		header["Content-Type"] = "text/plain"
	}

	// Only transport failures and 5xx responses count as breaker failures,
	// client errors are returned outside of Execute.
	iResp, err := b.cb.Execute(func() (interface{}, error) {
		status, resp, err := httputil.NewHTTPRequest(ctx, method, url, body, header)
		if err != nil {
			return nil, err
		}
		if status >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%d: %s", status, parseError(resp))
		}
		return response{status, resp}, nil
	})
	if err != nil {
		stats.ExplorerRequests.WithLabelValues(endpoint, "unavailable").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s", explorer.ErrUnavailable, err)
	}

	resp := iResp.(response)
	if resp.status != http.StatusOK {
		msg := parseError(resp.body)
		if resp.status == http.StatusNotFound || isNotFound(msg) {
			stats.ExplorerRequests.WithLabelValues(endpoint, "not_found").Inc()
			return fmt.Errorf("%w: %s", explorer.ErrNotFound, msg)
		}
		stats.ExplorerRequests.WithLabelValues(endpoint, "bad_request").Inc()
		return fmt.Errorf("%w: %s", explorer.ErrBadRequest, msg)
	}
	stats.ExplorerRequests.WithLabelValues(endpoint, "ok").Inc()

	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(resp.body), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

// parseError extracts the error message from a blockbook error body. The
// error field is either a plain string or an object with a message.
func parseError(body string) string {
	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &errResp); err != nil || len(errResp.Error) <= 0 {
		return strings.TrimSpace(body)
	}

	var msg string
	if err := json.Unmarshal(errResp.Error, &msg); err == nil {
		return msg
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(errResp.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(errResp.Error)
}

func isNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found")
}

var errEmptyResult = errors.New("empty result")
