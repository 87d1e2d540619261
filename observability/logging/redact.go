package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// plainKeys may be logged verbatim. Anything else passed through MaskField is
// replaced with RedactedValue.
var plainKeys = map[string]bool{
	"component": true, "duration": true, "env": true, "error": true,
	"issuer": true, "audience": true, "marketplace": true, "method": true,
	"mint": true, "nonce": true, "op": true, "payer": true,
	"program": true, "reason": true, "request_id": true, "service": true,
	"tx": true,
}

// IsAllowlisted reports whether key is exempt from redaction.
func IsAllowlisted(key string) bool {
	return plainKeys[strings.ToLower(strings.TrimSpace(key))]
}

// MaskField returns an attribute whose value is hidden unless key is known
// to be safe. Empty values are kept so missing settings stay visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskDSN logs a database location with any embedded credentials removed.
// Plain file paths pass through unchanged.
func MaskDSN(key, dsn string) slog.Attr {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if strings.Contains(dsn, "password=") {
			return slog.String(key, RedactedValue)
		}
		return slog.String(key, dsn)
	}
	if _, hasPass := u.User.Password(); hasPass {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	q := u.Query()
	for name := range q {
		if strings.Contains(strings.ToLower(name), "password") {
			q.Set(name, "xxxxx")
		}
	}
	u.RawQuery = q.Encode()
	return slog.String(key, u.String())
}
