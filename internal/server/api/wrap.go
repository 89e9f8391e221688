package api

import (
	"encoding/json"
	"net/http"
)

type Handler func(r *http.Request) (any, *APIError)

// Wrap кодирует результат обработчика в конверт {ok, data, error}
func Wrap(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, apiErr := h(r)
		if apiErr != nil {
			Write(w, apiErr.Status, Response{OK: false, Error: &apiErr.Err})
			return
		}
		Write(w, http.StatusOK, Response{OK: true, Data: data})
	}
}

func Write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
