// Package auth implements the bearer-token Authenticator and the per-IP
// sliding-window RateLimiter for restexec, including trusted-proxy client-IP
// resolution. Grounded on the teacher's auth middleware (rate limiter
// struct, trusted-proxy CIDR map) but rewritten around a single shared API
// key rather than per-user sessions, since this core has no identity system.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/logging"
)

// Config configures the Authenticator.
type Config struct {
	Enabled bool
	APIKey  string
}

// Authenticator checks the Authorization: Bearer header against the
// configured key in constant time.
type Authenticator struct {
	config Config
	secLog *logging.SecurityLogger
}

// New creates an Authenticator. If config.Enabled is false, every request
// passes (auth is off entirely, by explicit operator choice). A nil secLog
// falls back to logging.NewSecurityLogger().
func New(config Config, secLog *logging.SecurityLogger) *Authenticator {
	if secLog == nil {
		secLog = logging.NewSecurityLogger()
	}
	return &Authenticator{config: config, secLog: secLog}
}

// Authenticate checks the request's bearer token. clientIP is passed in
// (rather than derived here) because trusted-proxy resolution is the
// RateLimiter's responsibility and both components must agree on the same
// resolved IP.
func (a *Authenticator) Authenticate(r *http.Request, clientIP string) *errs.Error {
	if !a.config.Enabled {
		return nil
	}

	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		a.secLog.LogAuthFailure(clientIP, "missing or malformed authorization header")
		return errs.New(errs.KindUnauthorized, "missing or malformed authorization header")
	}

	presented := header[len(prefix):]
	if !constantTimeEqual(presented, a.config.APIKey) {
		a.secLog.LogAuthFailure(clientIP, "invalid credential")
		return errs.New(errs.KindUnauthorized, "invalid credential")
	}

	return nil
}

// constantTimeEqual compares two strings in time independent of where they
// first differ: a length-prefix check plus subtle.ConstantTimeCompare (a
// straightforward XOR-over-all-bytes comparison) over the full byte range,
// never short-circuiting on a length mismatch result.
func constantTimeEqual(presented, configured string) bool {
	lenOK := subtle.ConstantTimeEq(int32(len(presented)), int32(len(configured)))

	// Compare against a same-length buffer even when lengths differ, so the
	// byte-compare work itself does not vary with input length.
	compareTarget := configured
	if len(presented) != len(configured) {
		compareTarget = configured + strings.Repeat("\x00", maxInt(0, len(presented)-len(configured)))
		if len(presented) < len(configured) {
			compareTarget = compareTarget[:len(presented)]
		}
	}

	bytesOK := subtle.ConstantTimeCompare([]byte(presented), []byte(compareTarget))
	return lenOK == 1 && bytesOK == 1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
