package htb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"htbwriteups/pkg/config"
	"htbwriteups/pkg/errors"
	"htbwriteups/pkg/logger"
)

const (
	// DefaultUserAgent mimics the curl client the API is happy with
	DefaultUserAgent = "curl/8.5.0"

	// DefaultAccept is sent with every request
	DefaultAccept = "application/json, text/plain, */*"
)

// Client represents a Hack The Box API client
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new API client from the API configuration
func NewClient(cfg *config.APIConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"Authorization": "Bearer " + cfg.Token,
			"Accept":        DefaultAccept,
			"User-Agent":    userAgent,
		},
		baseURL: baseURL,
		logger:  log,
	}
}

// Get performs a GET request and returns the raw response, whatever its
// status. The caller owns the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(errors.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, duration)
	return resp, nil
}

// FetchProfile fetches the profile of a machine
func (c *Client) FetchProfile(ctx context.Context, id int) (*Profile, error) {
	url := ProfileURL(c.baseURL, id)

	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.FromStatusCode(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse profile response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, errors.New(errors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	if profile.Info.Name == "" {
		return nil, errors.New(errors.ErrorTypeParsing, resp.StatusCode, "profile of machine %d has no name", id)
	}

	return &profile, nil
}

// MachineName resolves a machine ID to its display name. Any failure is
// logged and reported as ok == false; the caller skips the ID.
func (c *Client) MachineName(ctx context.Context, id int) (string, bool) {
	profile, err := c.FetchProfile(ctx, id)
	if err != nil {
		fields := map[string]interface{}{"machine_id": id}
		if apiErr, ok := err.(*errors.Error); ok && apiErr.Code != 0 {
			fields["status"] = apiErr.Code
		}
		c.logger.WithError(err).WarnWithFields("Failed to get machine name", fields)
		return "", false
	}
	return profile.Info.Name, true
}
