package errmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Type values of the error taxonomy.
const (
	TypePermissionDenied   = "permission_denied"
	TypeRateLimitExceeded  = "rate_limit_exceeded"
	TypeDependencyMissing  = "dependency_missing"
	TypeConfiguration      = "configuration_error"
	TypeUnauthorized       = "unauthorized"
	TypeForbidden          = "forbidden"
	TypeNotFound           = "not_found"
	TypeTwitterAPI         = "twitter_api_error"
	TypeArticleFetchFailed = "article_fetch_failed"
	TypeInvalidInput       = "invalid_input"
	TypeInternal           = "internal_error"
)

const (
	maxMessage = 512
	maxDetail  = 256
)

// Error is the compact error payload returned to callers and used internally.
// It implements the error interface.
type Error struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Status  int            `json:"status,omitempty"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New constructs a compact error. Status defaults to the taxonomy status of typ.
func New(typ, message string, details map[string]any, cause error) *Error {
	e := &Error{Type: typ, Message: truncate(message, maxMessage), Status: defaultStatus(typ), cause: cause}
	if len(details) > 0 {
		e.Details = truncateDetails(details)
	}
	return e
}

// From converts any error into a compact Error. If err already wraps an *Error,
// that instance is returned.
func From(err error) *Error {
	var ce *Error
	if err == nil {
		return nil
	}
	if errors.As(err, &ce) {
		return ce
	}
	return New(TypeInternal, err.Error(), nil, err)
}

// Convenience constructors.

func PermissionDenied(tool, profile string) *Error {
	return New(TypePermissionDenied, "Tool is disabled by the current permission profile",
		map[string]any{"tool": tool, "profile": profile}, nil)
}

func RateLimited(actionType string, retryAfter time.Duration) *Error {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	return New(TypeRateLimitExceeded, "Rate limit exceeded",
		map[string]any{"action_type": actionType, "retry_after_seconds": secs}, nil)
}

func DependencyMissing(dependency, hint, url string) *Error {
	return New(TypeDependencyMissing, "Required dependency is not installed",
		map[string]any{"dependency": dependency, "hint": hint, "url": url}, nil)
}

// MissingEnv reports unset configuration variables.
func MissingEnv(names ...string) *Error {
	return New(TypeConfiguration, "Missing required environment variable(s): "+strings.Join(names, ", "), nil, nil)
}

func Configuration(message string, cause error) *Error {
	return New(TypeConfiguration, message, nil, cause)
}

func NotFound(message string, details map[string]any) *Error {
	return New(TypeNotFound, message, details, nil)
}

func InvalidInput(message string, details map[string]any) *Error {
	return New(TypeInvalidInput, message, details, nil)
}

func ArticleFetchFailed(url string, cause error) *Error {
	msg := "Failed to fetch article"
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return New(TypeArticleFetchFailed, msg, map[string]any{"url": url, "error": detail}, cause)
}

func Internal(message string, cause error) *Error {
	return New(TypeInternal, message, nil, cause)
}

// Upstream maps a failed X API response to the taxonomy. A zero status means
// the request never produced a response.
func Upstream(status int, message string, details map[string]any, cause error) *Error {
	var typ string
	switch status {
	case http.StatusUnauthorized:
		typ = TypeUnauthorized
	case http.StatusForbidden:
		typ = TypeForbidden
	case http.StatusNotFound:
		typ = TypeNotFound
	case http.StatusTooManyRequests:
		typ = TypeRateLimitExceeded
	default:
		typ = TypeTwitterAPI
	}
	e := New(typ, message, details, cause)
	if status == 0 {
		e.Status = http.StatusBadGateway
	}
	return e
}

func defaultStatus(typ string) int {
	switch typ {
	case TypePermissionDenied, TypeForbidden:
		return http.StatusForbidden
	case TypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case TypeDependencyMissing:
		return http.StatusNotImplemented
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeTwitterAPI, TypeArticleFetchFailed:
		return http.StatusBadGateway
	case TypeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus returns the HTTP status of e.
func HTTPStatus(e *Error) int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if e.Status != 0 {
		return e.Status
	}
	return defaultStatus(e.Type)
}

// EnvelopeBody is the failure payload handed to callers.
type EnvelopeBody struct {
	OK        bool   `json:"ok"`
	Error     *Error `json:"error"`
	Timestamp string `json:"timestamp"`
	Tool      string `json:"tool,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Envelope wraps err in the failure payload stamped at now.
func Envelope(err error, tool string, now time.Time) EnvelopeBody {
	ce := From(err)
	if ce == nil {
		ce = Internal("unknown error", nil)
	}
	return EnvelopeBody{
		OK:        false,
		Error:     ce,
		Timestamp: now.UTC().Format(time.RFC3339),
		Tool:      tool,
	}
}

// WriteHTTP writes the failure envelope to the response writer.
// It includes the trace_id if present in the request context.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	env := Envelope(err, "", time.Now())
	w.Header().Set("Content-Type", "application/json")
	if env.Error.Type == TypeRateLimitExceeded {
		if secs, ok := env.Error.Details["retry_after_seconds"].(int); ok {
			w.Header().Set("Retry-After", fmt.Sprint(secs))
		}
	}
	w.WriteHeader(HTTPStatus(env.Error))

	if r != nil {
		sc := trace.SpanFromContext(r.Context()).SpanContext()
		if sc.HasTraceID() {
			env.TraceID = sc.TraceID().String()
		}
	}
	_ = json.NewEncoder(w).Encode(env)
}

// truncate trims a string to max bytes.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// truncateDetails trims long string values and compacts nested values.
func truncateDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		switch t := v.(type) {
		case string:
			out[k] = truncate(t, maxDetail)
		case nil, bool, int, int64, float64:
			out[k] = t
		default:
			b, err := json.Marshal(t)
			if err == nil && len(b) > maxDetail {
				out[k] = truncate(string(b), maxDetail)
			} else {
				out[k] = t
			}
		}
	}
	return out
}

// IsType checks if err carries the given taxonomy type.
func IsType(err error, typ string) bool {
	ce := From(err)
	return ce != nil && strings.EqualFold(ce.Type, typ)
}
