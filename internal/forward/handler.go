// Package forward republishes client proxy results over the binary's own
// HTTP surface: each route extracts inbound parameters, invokes the
// matching proxy operation and maps the outcome to an outward status.
package forward

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/declarest/declarest/internal/demo"
	"github.com/declarest/declarest/pkg/registry"
)

// Handler serves the forwarding endpoints backed by a registry.
type Handler struct {
	logger   zerolog.Logger
	registry *registry.Registry
}

// NewHandler creates a forwarding handler over an initialized registry.
func NewHandler(logger zerolog.Logger, reg *registry.Registry) *Handler {
	return &Handler{
		logger:   logger.With().Str("component", "forward").Logger(),
		registry: reg,
	}
}

// Routes returns the handler's route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", h.getPosts)
	mux.HandleFunc("GET /posts/{id}", h.getPost)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	mux.HandleFunc("GET /comments", h.getComments)
	mux.HandleFunc("GET /comments/{id}", h.getComment)
	return mux
}

func (h *Handler) getPosts(w http.ResponseWriter, r *http.Request) {
	proxy, err := h.registry.Proxy("posts")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var posts []demo.Post
	if err := proxy.Call(r.Context(), "list", registry.Args{}, &posts); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, posts)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	proxy, err := h.registry.Proxy("posts")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var post demo.Post
	args := registry.Args{Path: map[string]string{"id": r.PathValue("id")}}
	if err := proxy.Call(r.Context(), "getById", args, &post); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, post)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	proxy, err := h.registry.Proxy("products")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var product demo.Product
	args := registry.Args{Path: map[string]string{"id": r.PathValue("id")}}
	if err := proxy.Call(r.Context(), "getById", args, &product); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, product)
}

// getComments rides the async engine: the proxy returns a deferred handle
// and the handler waits on it, so an abandoned inbound request cancels the
// upstream call through the request context.
func (h *Handler) getComments(w http.ResponseWriter, r *http.Request) {
	proxy, err := h.registry.Proxy("comments")
	if err != nil {
		h.writeError(w, err)
		return
	}

	args := registry.Args{}
	if postID := r.URL.Query().Get("postId"); postID != "" {
		args.Query = url.Values{"postId": []string{postID}}
	}

	var comments []demo.Comment
	deferred := proxy.Go(r.Context(), "list", args, &comments)
	if err := deferred.Wait(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, comments)
}

func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	proxy, err := h.registry.Proxy("comments")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var comment demo.Comment
	args := registry.Args{Path: map[string]string{"id": r.PathValue("id")}}
	deferred := proxy.Go(r.Context(), "getById", args, &comment)
	if err := deferred.Wait(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, comment)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	h.logger.Warn().Err(err).Int("status", status).Msg("forwarded call failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// StatusFor maps a proxy error to the outward status the forwarding
// endpoint republishes: remote errors retain their status when feasible,
// transport failures surface as gateway errors, local binding and decode
// problems stay server-side.
func StatusFor(err error) int {
	switch registry.GetType(err) {
	case registry.ErrorTypeRemote:
		if status := registry.StatusOf(err); status > 0 {
			return status
		}
		return http.StatusBadGateway
	case registry.ErrorTypeTransport:
		if registry.TransportCauseOf(err) == registry.CauseTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case registry.ErrorTypePath:
		return http.StatusBadRequest
	case registry.ErrorTypeCanceled:
		return statusClientClosedRequest
	default:
		// decode, filter, config, internal
		return http.StatusInternalServerError
	}
}

// statusClientClosedRequest is nginx's non-standard 499, the conventional
// status for a caller that went away mid-call.
const statusClientClosedRequest = 499
