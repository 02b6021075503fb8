package authclient

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAuditNoSecretsInEvents(t *testing.T) {
	env := newTestEnv(t)
	sink := NewChannelSink(32)
	c := env.client(t, func(b *Builder) { b.WithAuditSink(sink) })

	loginTestUser(t, c)
	first, _ := env.stored(t)

	env.clock.Advance(900 * time.Second)
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/items"}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	second, _ := env.stored(t)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	needles := []string{
		testPassword,
		first.AccessToken,
		first.RefreshToken,
		second.AccessToken,
		second.RefreshToken,
	}

	events := make([]AuditEvent, 0, 3)
	timeout := time.After(2 * time.Second)
collectLoop:
	for len(events) < 3 {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			break collectLoop
		}
	}
	if len(events) != 3 {
		t.Fatalf("expected login, refresh and logout events, got %d", len(events))
	}

	for _, ev := range events {
		if ev.EventType != AuditLogout && ev.Fingerprint == "" {
			t.Fatalf("expected fingerprint on %s event", ev.EventType)
		}
		for _, needle := range needles {
			if needle == "" {
				continue
			}
			fields := []string{ev.Subject, ev.Fingerprint, ev.Error}
			for k, v := range ev.Metadata {
				fields = append(fields, k, v)
			}
			for _, f := range fields {
				if strings.Contains(f, needle) {
					t.Fatalf("secret leaked in %s event", ev.EventType)
				}
			}
		}
	}
}

func TestAuditSessionExpiredOnRevokedRefresh(t *testing.T) {
	env := newTestEnv(t)
	sink := NewChannelSink(32)
	c := env.client(t, func(b *Builder) { b.WithAuditSink(sink) })

	loginTestUser(t, c)
	p, _ := env.stored(t)
	env.srv.RevokeRefresh(p.RefreshToken)
	env.clock.Advance(900 * time.Second)

	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/items"}); err == nil {
		t.Fatal("expected request to fail after revocation")
	}

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for !seen[AuditSessionExpired] {
		select {
		case ev := <-sink.Events():
			seen[ev.EventType] = true
			if ev.EventType == AuditRefresh && ev.Success {
				t.Fatal("refresh must not be reported successful")
			}
		case <-timeout:
			t.Fatalf("timed out waiting for session_expired, saw %v", seen)
		}
	}
}

func TestFlushAuditDeliversPendingEvents(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	c := env.client(t, func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(&buf)) })

	loginTestUser(t, c)
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := c.FlushAudit(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected login and logout lines, got %q", out)
	}
	if !strings.Contains(out, `"event_type":"logout"`) {
		t.Fatalf("expected logout event, got %q", out)
	}
}
