package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const MaxBodyBytes = 64 << 10

var errBadJSON = NewError(http.StatusBadRequest, "bad_json", "bad json")

// ReadJSON декодирует ровно один JSON-объект из тела запроса
func ReadJSON(r *http.Request, dst any) *APIError {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return NewError(http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		}
		return errBadJSON
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errBadJSON
	}
	return nil
}
