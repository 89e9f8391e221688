package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
	"github.com/benniella/Credit-Risk-Prediction/internal/server/api"
)

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	api.Wrap(s.predict)(w, r)
}

func (s *Server) predict(r *http.Request) (any, *api.APIError) {
	var raw map[string]json.RawMessage
	if apiErr := api.ReadJSON(r, &raw); apiErr != nil {
		return nil, apiErr
	}
	values, bad := decodeValues(raw)
	if len(bad) > 0 {
		return nil, api.ValidationError(bad)
	}

	f := s.newForm(r)
	f.Fill(values)
	result, err := f.Submit(r.Context(), nil)
	if err != nil {
		return nil, predictError(err, f.View().ServerError)
	}
	return newResultData(f.ID(), result), nil
}

func predictError(err error, message string) *api.APIError {
	var fieldErrs applicant.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		return api.ValidationError(fieldErrs)
	case errors.Is(err, riskapi.ErrTimeout):
		return api.NewError(http.StatusGatewayTimeout, "upstream_timeout", message)
	case errors.Is(err, riskapi.ErrCanceled):
		return api.NewError(http.StatusServiceUnavailable, "canceled", message)
	}
	return api.NewError(http.StatusBadGateway, "upstream_error", message)
}

type healthData struct {
	Healthy bool `json:"healthy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.Wrap(func(r *http.Request) (any, *api.APIError) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if !s.api.CheckHealth(ctx) {
			return nil, api.NewError(http.StatusServiceUnavailable, "upstream_unavailable", "prediction API is not responding")
		}
		return healthData{Healthy: true}, nil
	})(w, r)
}
