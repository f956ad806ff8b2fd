package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every request made with the package client.
const DefaultTimeout = 30 * time.Second

var client = &http.Client{Timeout: DefaultTimeout}

// NewHTTPRequest performs an http call and returns status code and body.
// The request is bound to ctx, cancelling it aborts the call.
func NewHTTPRequest(
	ctx context.Context, method, url, bodyString string, header map[string]string,
) (int, string, error) {
	switch method {
	case http.MethodGet, http.MethodDelete:
		return do(ctx, method, url, nil, header)
	case http.MethodPost, http.MethodPut:
		return do(ctx, method, url, strings.NewReader(bodyString), header)
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}
}

func do(
	ctx context.Context, method, url string, body io.Reader, header map[string]string,
) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, "", err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := io.ReadAll(rs.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse response body: %w", err)
	}

	return rs.StatusCode, string(bodyBytes), nil
}
