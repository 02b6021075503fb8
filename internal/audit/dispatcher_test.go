package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("sink exploded") }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false, BufferSize: 4}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	// nil receivers are safe
	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	if d.Dropped() != 0 || d.Failed() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDeliversAndFlushesOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "login"})
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events after close, got %d", got)
	}
}

func TestDispatcherBufferFullDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestDispatcherBufferFullBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestDispatcherBlockedEmitHonorsContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{EventType: "e3"})
	if time.Since(start) > time.Second {
		t.Fatal("expected emit to give up when the context ends")
	}
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})
	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})
	d.Close()

	if got := d.Failed(); got != 2 {
		t.Fatalf("expected 2 failed deliveries, got %d", got)
	}
}

func TestDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, &countingSink{})

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

func TestDispatcherRetainedTypesWaitInDropMode(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true, Retain: []string{"logout"}}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	d.Emit(context.Background(), Event{EventType: "refresh"})
	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected the unretained event to be dropped, got %d drops", got)
	}

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "logout"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("retained event must wait for space instead of dropping")
	case <-time.After(100 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retained event never queued")
	}
	if got := d.Dropped(); got != 1 {
		t.Fatalf("retained event counted as dropped: %d", got)
	}
}

func TestDispatcherExpiredContextCountsAsDrop(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "e3"})

	if got := d.Dropped(); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}
}

func TestDispatcherFlushWaitsForDelivery(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	defer d.Close()

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh"})
	}
	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 events at the sink after flush, got %d", got)
	}
	if got := d.Delivered(); got != 10 {
		t.Fatalf("expected 10 delivered, got %d", got)
	}
}

func TestDispatcherFlushHonorsContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := d.Flush(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcherFlushAfterCloseReturns(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, &countingSink{})
	d.Close()
	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("flush after close: %v", err)
	}

	var nilD *Dispatcher
	if err := nilD.Flush(context.Background()); err != nil {
		t.Fatalf("nil flush: %v", err)
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp:   time.Now().UTC(),
		EventType:   "login_success",
		Subject:     "alice@example.com",
		Fingerprint: "ab12cd34",
		Success:     true,
	})
	sink.Emit(context.Background(), Event{EventType: "logout", Success: true})

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected two lines, got %q", out)
	}
	if !strings.Contains(out, `"event_type":"login_success"`) {
		t.Fatal("expected JSON line to contain event type")
	}
	if !strings.Contains(out, `"subject":"alice@example.com"`) {
		t.Fatal("expected JSON line to contain subject")
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: "refresh", Success: true, Metadata: map[string]string{"joined": "3"}})
	sink.Emit(context.Background(), Event{EventType: "session_expired", Error: "refresh token revoked"})

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[0].Message != "refresh" {
		t.Fatalf("unexpected success entry: %+v", entries[0])
	}
	if entries[0].ContextMap()["joined"] != "3" {
		t.Fatal("expected metadata as fields")
	}
	if entries[1].Level != zap.WarnLevel || entries[1].LoggerName != "audit" {
		t.Fatalf("unexpected failure entry: %+v", entries[1])
	}
}
