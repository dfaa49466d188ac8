package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"strconv"
)

// Attribute keys shared by every log line the server writes.
const (
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyUserHash   = "user_hash"
	KeyStatusCode = "status_code"
	KeyError      = "error"
	KeyErrorKind  = "error_kind"
	KeyURL        = "url"
	KeySession    = "session"
	KeyToken      = "token"
)

// WithOperation returns a logger tagged with an operation name.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithService returns a logger tagged with the service it talks to.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Session logs only a short prefix of the MCP session ID, which doubles as
// the key for stored bearer tokens.
func Session(id string) slog.Attr {
	if len(id) > 8 {
		id = id[:8]
	}
	return slog.String(KeySession, id)
}

// URL strips userinfo, query and fragment before logging a URL.
func URL(raw string) slog.Attr {
	u, err := url.Parse(raw)
	if err != nil {
		return slog.String(KeyURL, "<invalid>")
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return slog.String(KeyURL, u.String())
}

// Err returns an error attribute. A nil error yields an empty group, which
// slog drops, so Err(maybeNil) is always safe.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an email so log lines can be correlated per user
// without recording the address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken describes a bearer token by length only. Even a JWT header
// prefix is not logged.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return "[token:" + strconv.Itoa(len(token)) + " chars]"
}

func Token(token string) slog.Attr {
	return slog.String(KeyToken, SanitizeToken(token))
}
