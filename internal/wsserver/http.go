package wsserver

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/cheese-pvp-server/internal/archive"
	"github.com/park285/cheese-pvp-server/internal/obslog"
)

// ResultReader serves archived results.
type ResultReader interface {
	Get(ctx context.Context, id string) (*archive.Record, error)
	RecentByPlayer(ctx context.Context, name string) ([]archive.Record, error)
}

// NewMux routes the websocket endpoint, health and, when results is
// non-nil, the archived-result lookups.
func NewMux(srv *Server, results ResultReader) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", srv)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "connections": srv.hub.Len()})
	})
	if results == nil {
		return mux
	}
	mux.HandleFunc("GET /results/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := results.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			obslog.L().Warn("http_result_error", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			return
		}
		if rec == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
	mux.HandleFunc("GET /players/{name}/results", func(w http.ResponseWriter, r *http.Request) {
		list, err := results.RecentByPlayer(r.Context(), r.PathValue("name"))
		if err != nil {
			obslog.L().Warn("http_player_results_error", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
