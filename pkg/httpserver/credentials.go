package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/wilhg/xmcp/pkg/xapi"
)

// ConfigParam carries base64 JSON credentials on MCP requests.
const ConfigParam = "config"

// Credentials attaches the credentials of the config query parameter to the
// request context and mirrors the blob into xapi.CredentialsHeader for the
// MCP session. Undecodable values are ignored and the process environment
// applies.
func Credentials(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blob := r.URL.Query().Get(ConfigParam)
			if blob == "" {
				next.ServeHTTP(w, r)
				return
			}
			creds, err := xapi.DecodeCredentials(blob)
			if err != nil {
				logger.Debug("ignoring undecodable config parameter", slog.Any("err", err))
				next.ServeHTTP(w, r)
				return
			}
			r.Header.Set(xapi.CredentialsHeader, blob)
			next.ServeHTTP(w, r.WithContext(xapi.WithCredentials(r.Context(), creds)))
		})
	}
}
