package github

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// CheckConnectivity verifies the API is reachable with the configured
// credential. The real request races a wall-clock timer; whichever resolves
// first wins and the loser is discarded, so the caller is answered exactly
// once. Only one check may run per client at a time.
func (c *Client) CheckConnectivity(timeout time.Duration) error {
	if !c.checking.CompareAndSwap(false, true) {
		return ErrCheckInProgress
	}
	defer c.checking.Store(false)

	var once sync.Once
	result := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := c.ping(ctx)
		once.Do(func() { result <- err })
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		// Claim the once so a late completion cannot deliver a second answer.
		once.Do(func() {})
		return ErrCheckTimeout
	}
}

// ping hits the rate-limit endpoint, which is free and answers for any
// valid credential.
func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/rate_limit", nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "repotrends")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &APIError{Kind: KindAuthentication, StatusCode: resp.StatusCode, Message: "token was rejected"}
	}
	if resp.StatusCode >= 500 {
		return &APIError{Kind: KindAPI, StatusCode: resp.StatusCode, Message: fmt.Sprintf("API returned HTTP %d", resp.StatusCode)}
	}
	return nil
}
