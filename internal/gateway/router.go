// Package gateway classifies inbound requests and dispatches them to the
// relay, the API proxy, or the static asset handler.
package gateway

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Kind is the routing class of an inbound request.
type Kind int

const (
	// KindRelay is a WebSocket upgrade request bound for the streaming relay.
	KindRelay Kind = iota
	// KindAPI is a plain HTTP call bound for the upstream API.
	KindAPI
	// KindStatic is everything else, served from the asset handler.
	KindStatic
)

func (k Kind) String() string {
	switch k {
	case KindRelay:
		return "relay"
	case KindAPI:
		return "api"
	default:
		return "static"
	}
}

var apiSuffixes = []string{
	"/chat/completions",
	"/embeddings",
	"/models",
}

// Classify decides how a request is handled. Upgrade requests go to the
// relay regardless of path, known API path suffixes go to the API proxy,
// and everything else is a static asset.
func Classify(r *http.Request) Kind {
	if websocket.IsWebSocketUpgrade(r) {
		return KindRelay
	}
	for _, suffix := range apiSuffixes {
		if strings.HasSuffix(r.URL.Path, suffix) {
			return KindAPI
		}
	}
	return KindStatic
}

// Handler fans requests out to the three backends by routing class.
type Handler struct {
	Relay  http.Handler
	API    http.Handler
	Static http.Handler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch Classify(r) {
	case KindRelay:
		h.Relay.ServeHTTP(w, r)
	case KindAPI:
		h.API.ServeHTTP(w, r)
	default:
		h.Static.ServeHTTP(w, r)
	}
}
