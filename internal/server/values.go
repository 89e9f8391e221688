package server

import (
	"bytes"
	"encoding/json"

	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
)

// decodeValues принимает значения полей строками или числами.
// Неизвестные поля и значения других типов возвращаются как ошибки по полям
func decodeValues(raw map[string]json.RawMessage) (applicant.Values, applicant.FieldErrors) {
	values := applicant.EmptyValues()
	var bad applicant.FieldErrors
	for name, msg := range raw {
		if _, ok := applicant.FieldByName(name); !ok {
			bad = addErr(bad, name, "Unknown field")
			continue
		}
		v, ok := rawValue(msg)
		if !ok {
			bad = addErr(bad, name, "Must be a string or number")
			continue
		}
		values.Set(name, v)
	}
	return values, bad
}

func addErr(errs applicant.FieldErrors, name, msg string) applicant.FieldErrors {
	if errs == nil {
		errs = make(applicant.FieldErrors)
	}
	errs[name] = msg
	return errs
}

func rawValue(msg json.RawMessage) (string, bool) {
	v := bytes.TrimSpace(msg)
	switch {
	case len(v) == 0 || bytes.Equal(v, []byte("null")):
		return "", true
	case v[0] == '"':
		var s string
		err := json.Unmarshal(v, &s)
		return s, err == nil
	case v[0] == '-' || (v[0] >= '0' && v[0] <= '9'):
		return string(v), true
	}
	return "", false
}

// resultData - результат прогноза в ответах JSON API и /ws
type resultData struct {
	FormID string `json:"form_id,omitempty"`
	*riskapi.Result
	ProbabilityPercent string `json:"probability_percent"`
}

func newResultData(formID string, r *riskapi.Result) *resultData {
	return &resultData{
		FormID:             formID,
		Result:             r,
		ProbabilityPercent: r.ProbabilityPercent(),
	}
}
