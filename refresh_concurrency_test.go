package authclient

import (
	"context"
	"net/http"
	"sync"
	"testing"
)

func TestRefreshConcurrencyForcedByUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	loginTestUser(t, c)

	tok, err := c.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("access token failed: %v", err)
	}
	env.srv.RevokeAccess(tok)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/items"})
			if err == nil && resp.StatusCode != http.StatusOK {
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("unexpected request error: %v", err)
		}
	}

	if got := env.srv.Refreshes.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh, got %d", got)
	}
	if got := c.MetricsSnapshot().Counters[MetricRefreshStarted]; got != 1 {
		t.Fatalf("expected one started refresh, got %d", got)
	}
	if !c.State().Authenticated() {
		t.Fatalf("expected session to stay authenticated, got %s", c.State().Phase)
	}
}
