package httpapi

import "net/http"

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)

	mux.HandleFunc("/uploads/presign", h.Presign)
	mux.HandleFunc("/uploads/complete", h.Complete)
	// GET /uploads/media/{id}/status
	mux.HandleFunc("/uploads/media/", h.Status)

	// The exact pattern wins over the subtree, so /media/recent never
	// reaches the resolver.
	mux.HandleFunc("/media/recent", h.Recent)
	// GET /media/{id}
	mux.HandleFunc("/media/", h.Resolve)

	return mux
}
