package dispatch

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/acodispatch/core/dispatch/journal"
)

// NewJournalHandler returns an HTTP handler exposing replan records via
// GET /api/replans. The from, to, vehicle_id and order_id query parameters
// filter the records. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
func NewJournalHandler(store journal.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := journal.Query{
			VehicleID: r.URL.Query().Get("vehicle_id"),
			OrderID:   r.URL.Query().Get("order_id"),
		}
		var err error
		if q.FromMinute, err = minuteParam(r, "from"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if q.ToMinute, err = minuteParam(r, "to"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []journal.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func minuteParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
