package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// CDNStore reads theme objects over HTTP from the CDN distribution in
// front of the bucket. Keys map straight onto URL paths, so the same
// key returns the same bytes as the S3 source.
type CDNStore struct {
	domain string
	client *http.Client
}

// NewCDNStore builds a CDN-backed store for a distribution domain such
// as "cdn.example.com". A nil client gets a 10s-timeout default.
func NewCDNStore(domain string, client *http.Client) *CDNStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CDNStore{domain: domain, client: client}
}

// Get fetches an object over HTTPS. A 404 or 403 from the edge means
// the key does not exist and surfaces as *NotFoundError.
func (c *CDNStore) Get(ctx context.Context, key string) ([]byte, error) {
	u := url.URL{Scheme: "https", Host: c.domain, Path: "/" + key}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("cdn request %s: %w", key, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdn get %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		// S3-backed distributions answer 403 for absent keys when
		// ListBucket is denied.
		io.Copy(io.Discard, resp.Body)
		return nil, &NotFoundError{Key: key}
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("cdn get %s: unexpected status %d", key, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cdn read %s: %w", key, err)
	}
	return data, nil
}
