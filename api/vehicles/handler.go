package vehicles

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kilianp07/acodispatch/core/model"
)

// Source returns detached copies of the fleet.
type Source interface {
	Vehicles() []model.Vehicle
}

// View is a vehicle with the ids of its committed orders.
type View struct {
	model.Vehicle
	Route []string `json:"route"`
}

func viewOf(v model.Vehicle) View {
	out := View{Vehicle: v, Route: []string{}}
	for _, o := range v.Route {
		out.Route = append(out.Route, o.ID)
	}
	return out
}

// NewStatusHandler returns an HTTP handler exposing the fleet via
// GET /api/vehicles. The status and class query parameters filter the list.
func NewStatusHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status := r.URL.Query().Get("status")
		class := r.URL.Query().Get("class")
		entries := []View{}
		for _, v := range src.Vehicles() {
			if status != "" && v.Status.String() != status {
				continue
			}
			if class != "" && v.Class != class {
				continue
			}
			entries = append(entries, viewOf(v))
		}
		writeJSON(w, entries)
	})
}

// NewDetailHandler exposes one vehicle via GET /api/vehicles/{id}.
func NewDetailHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/vehicles/"), "/")
		if id == "" {
			http.Error(w, "missing vehicle id", http.StatusBadRequest)
			return
		}
		for _, v := range src.Vehicles() {
			if v.ID == id {
				writeJSON(w, viewOf(v))
				return
			}
		}
		http.Error(w, "vehicle not found", http.StatusNotFound)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
