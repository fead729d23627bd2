package websocket

import (
	"log/slog"
	"net/http"
	"slices"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client.
// allowedOrigins follows CORS_ALLOWED_ORIGINS; "*" accepts any origin.
func HandleWebSocket(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	opts := &ws.AcceptOptions{}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = allowedOrigins
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			slog.WarnContext(r.Context(), "websocket accept failed", "error", err)
			return
		}

		NewClient(hub, conn).Run(r.Context())
	}
}
