package osexec

import (
	"context"
	"net/http"
	"time"
)

func pollingHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

// pollOnce issues a single GET and reports whether the response was 2xx/3xx.
func pollOnce(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
