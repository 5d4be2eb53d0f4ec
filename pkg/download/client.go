// Package download fetches product images over HTTP. Each image gets a
// single attempt; failures are typed so the worker can count them.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
)

// DefaultUserAgent matches a desktop Chrome so image CDNs serve full size files
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// MaxImageBytes bounds a single image body
const MaxImageBytes = 32 << 20

// Client downloads images
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a client with the given per-request timeout
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger.LogComponentStart(log, "downloader", map[string]interface{}{
		"timeout":    timeout,
		"user_agent": userAgent,
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
			"Accept-Language": "en-CA,en;q=0.9",
		},
		logger: log,
	}
}

// Fetch downloads imageURL and returns its body
func (c *Client) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeDownload, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("image request failed", map[string]interface{}{
			"url":      imageURL,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errors.Wrap(errors.ErrorTypeDownload, "network error", err)
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeDownload,
			Message: "failed to read image body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	if len(data) > MaxImageBytes {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeDownload,
			Message: fmt.Sprintf("image larger than %d bytes", MaxImageBytes),
			Code:    resp.StatusCode,
		}
	}
	if len(data) == 0 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeDownload,
			Message: "empty image body",
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("image downloaded", map[string]interface{}{
		"url":      imageURL,
		"bytes":    len(data),
		"duration": time.Since(start),
	})
	return data, nil
}

// checkResponseStatus maps non-2xx statuses to typed errors
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var message string
	switch {
	case resp.StatusCode == http.StatusNotFound:
		message = "image not found"
	case resp.StatusCode == http.StatusForbidden:
		message = "image access forbidden"
	case resp.StatusCode == http.StatusTooManyRequests:
		message = "rate limited by image host"
	case resp.StatusCode >= 500:
		message = "image host error"
	default:
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}
	return &errors.Error{Type: errors.ErrorTypeDownload, Message: message, Code: resp.StatusCode}
}
