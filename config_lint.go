package authclient

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// LintSeverity grades a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// LintWarning flags a configuration that is valid but risky.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	var parts []string
	for _, w := range r {
		if w.Severity >= min {
			parts = append(parts, w.Code+": "+w.Message)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that pass [Config.Validate] but are likely mistakes.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if u, err := url.Parse(c.Transport.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("plaintext_transport", LintHigh, "tokens would be sent over plain http to a non-loopback host")
	}
	if c.Transport.Timeout > time.Minute {
		add("http_timeout_long", LintInfo, "http timeout above 1m delays failure detection")
	}

	if c.Refresh.Skew < 10*time.Second {
		add("skew_small", LintWarn, "skew below 10s risks sending tokens that expire in flight")
	}
	if c.Refresh.Timeout < c.Transport.Timeout {
		add("refresh_timeout_short", LintWarn, "refresh timeout is shorter than the http timeout")
	}

	switch c.Store.Backend {
	case StoreMemory:
		add("store_not_persistent", LintInfo, "memory store loses the session on restart")
	case StoreFile, StoreRedis:
		if c.Store.Passphrase != "" && c.Store.KDFMemory < 64*1024 {
			add("kdf_memory_low", LintWarn, "argon2id memory below 64 MiB")
		}
	}

	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_may_drop", LintInfo, "audit events are dropped when the buffer is full")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "metrics exporters will report zeros")
	}

	return ws
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
