package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
	"github.com/benniella/Credit-Risk-Prediction/internal/server/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	result   *riskapi.Result
	err      error
	healthy  bool
	block    chan struct{}
	profiles []*applicant.Profile
}

func (f *fakeAPI) WakeUp(ctx context.Context) bool {
	return true
}

func (f *fakeAPI) Predict(ctx context.Context, p *applicant.Profile) (*riskapi.Result, error) {
	f.mu.Lock()
	f.profiles = append(f.profiles, p)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, riskapi.NewError(riskapi.CanceledErrorT, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func (f *fakeAPI) CheckHealth(ctx context.Context) bool {
	return f.healthy
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		healthy: true,
		result: &riskapi.Result{
			Class:              1,
			Prediction:         riskapi.LabelDefault,
			DefaultProbability: 0.8,
			Threshold:          0.5,
		},
	}
}

func validForm() url.Values {
	return url.Values{
		applicant.PersonAge:           {"35"},
		applicant.PersonIncome:        {"50000"},
		applicant.PersonEmpLength:     {"5.5"},
		applicant.LoanAmnt:            {"10000"},
		applicant.LoanIntRate:         {"12.5"},
		applicant.LoanPercentIncome:   {"0.2"},
		applicant.CredHistLength:      {"10"},
		applicant.PersonHomeOwnership: {"RENT"},
		applicant.LoanIntent:          {"PERSONAL"},
		applicant.LoanGrade:           {"B"},
		applicant.DefaultOnFile:       {"N"},
	}
}

const validJSON = `{
	"person_age": 35,
	"person_income": 50000,
	"person_emp_length": "5.5",
	"loan_amnt": 10000,
	"loan_int_rate": 12.5,
	"loan_percent_income": 0.2,
	"cb_person_cred_hist_length": 10,
	"person_home_ownership": "RENT",
	"loan_intent": "PERSONAL",
	"loan_grade": "B",
	"cb_person_default_on_file": "N"
}`

func serve(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (api.Response, map[string]any) {
	t.Helper()
	var resp api.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func TestIndexRendersEmptyForm(t *testing.T) {
	h := New(newFakeAPI()).Routes()

	rec := serve(t, h, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)

	assert.Equal(t, len(applicant.Fields), doc.Find("#prediction-form label.field").Length())
	assert.Equal(t, 8, doc.Find(`select[name="loan_grade"] option`).Length())
	assert.Equal(t, "Select loan grade", doc.Find(`select[name="loan_grade"] option`).First().Text())

	age := doc.Find(`input[name="person_age"]`)
	assert.Equal(t, "18", age.AttrOr("min", ""))
	assert.Equal(t, "100", age.AttrOr("max", ""))

	_, hidden := doc.Find("#result").Attr("hidden")
	assert.True(t, hidden)
	_, hidden = doc.Find("#server-error").Attr("hidden")
	assert.True(t, hidden)
}

func TestSubmitValidationBlocksPrediction(t *testing.T) {
	fake := newFakeAPI()
	h := New(fake).Routes()

	values := validForm()
	values.Set(applicant.PersonAge, "17")
	values.Set(applicant.LoanGrade, "")
	rec := serve(t, h, http.MethodPost, "/", "application/x-www-form-urlencoded", values.Encode())

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	doc := parseHTML(t, rec)
	assert.Equal(t, "Must be between 18-100", doc.Find(`[data-field="person_age"] .error`).Text())
	assert.Equal(t, "Select loan grade", doc.Find(`[data-field="loan_grade"] .error`).Text())
	assert.Equal(t, "17", doc.Find(`input[name="person_age"]`).AttrOr("value", ""))
	assert.Zero(t, fake.calls())
}

func TestSubmitRendersResult(t *testing.T) {
	fake := newFakeAPI()
	h := New(fake).Routes()

	rec := serve(t, h, http.MethodPost, "/", "application/x-www-form-urlencoded", validForm().Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)

	assert.Equal(t, "80.00%", doc.Find("#result .probability").Text())
	assert.Equal(t, "Default", doc.Find("#result .prediction").Text())
	assert.Equal(t, "0.5", doc.Find("#result .threshold").Text())
	assert.Equal(t, "RENT", doc.Find(`select[name="person_home_ownership"] option[selected]`).AttrOr("value", ""))

	require.Equal(t, 1, fake.calls())
	assert.Equal(t, 35, fake.profiles[0].PersonAge)
	assert.Equal(t, 5.5, fake.profiles[0].PersonEmpLength)
}

func TestSubmitShowsNormalizedError(t *testing.T) {
	fake := newFakeAPI()
	fake.err = riskapi.NewError(riskapi.TimeoutErrorT, context.DeadlineExceeded)
	h := New(fake).Routes()

	rec := serve(t, h, http.MethodPost, "/", "application/x-www-form-urlencoded", validForm().Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)

	msg := doc.Find("#server-error .message").Text()
	assert.Contains(t, msg, "server is waking up")
	_, hidden := doc.Find("#server-error").Attr("hidden")
	assert.False(t, hidden)
}

func TestResetRedirects(t *testing.T) {
	h := New(newFakeAPI()).Routes()

	rec := serve(t, h, http.MethodPost, "/reset", "application/x-www-form-urlencoded", validForm().Encode())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestStaticScript(t *testing.T) {
	h := New(newFakeAPI()).Routes()

	rec := serve(t, h, http.MethodGet, "/static/app.js", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WebSocket")
}

func TestRequestIDHeader(t *testing.T) {
	h := New(newFakeAPI()).Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = serve(t, h, http.MethodGet, "/api/health", "", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestAPIPredict(t *testing.T) {
	fake := newFakeAPI()
	h := New(fake).Routes()

	rec := serve(t, h, http.MethodPost, "/api/predict", "application/json", validJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp, data := decodeEnvelope(t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "Default", data["prediction"])
	assert.Equal(t, "80.00%", data["probability_percent"])
	assert.EqualValues(t, 1, data["class"])
	assert.EqualValues(t, 0.5, data["threshold"])
	assert.NotEmpty(t, data["form_id"])

	require.Equal(t, 1, fake.calls())
	assert.Equal(t, &applicant.Profile{
		PersonAge:           35,
		PersonIncome:        50000,
		PersonEmpLength:     5.5,
		LoanAmnt:            10000,
		LoanIntRate:         12.5,
		LoanPercentIncome:   0.2,
		CredHistLength:      10,
		PersonHomeOwnership: "RENT",
		LoanIntent:          "PERSONAL",
		LoanGrade:           "B",
		DefaultOnFile:       "N",
	}, fake.profiles[0])
}

func TestAPIPredictErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		code    string
		message string
		details map[string]string
	}{
		{
			name:    "validation",
			body:    strings.Replace(validJSON, `"person_age": 35`, `"person_age": 150`, 1),
			status:  http.StatusBadRequest,
			code:    "validation_error",
			details: map[string]string{"person_age": "Must be between 18-100"},
		},
		{
			name:    "unknown field",
			body:    `{"credit_score": 700}`,
			status:  http.StatusBadRequest,
			code:    "validation_error",
			details: map[string]string{"credit_score": "Unknown field"},
		},
		{
			name:    "wrong value type",
			body:    `{"person_age": [35]}`,
			status:  http.StatusBadRequest,
			code:    "validation_error",
			details: map[string]string{"person_age": "Must be a string or number"},
		},
		{
			name:   "bad json",
			body:   `{"person_age":`,
			status: http.StatusBadRequest,
			code:   "bad_json",
		},
		{
			name:    "timeout",
			body:    validJSON,
			err:     riskapi.NewError(riskapi.TimeoutErrorT, context.DeadlineExceeded),
			status:  http.StatusGatewayTimeout,
			code:    "upstream_timeout",
			message: "The server is taking too long to respond. This might be because the server is waking up. Please wait a moment and try again.",
		},
		{
			name:    "server error",
			body:    validJSON,
			err:     riskapi.NewError(riskapi.ServerResponseErrorT, errors.New("person_age: field required")),
			status:  http.StatusBadGateway,
			code:    "upstream_error",
			message: "person_age: field required",
		},
		{
			name:    "network",
			body:    validJSON,
			err:     riskapi.NewError(riskapi.NetworkErrorT, errors.New("connection refused")),
			status:  http.StatusBadGateway,
			code:    "upstream_error",
			message: "Cannot connect to server. Please check your internet connection.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeAPI()
			fake.err = tt.err
			h := New(fake).Routes()

			rec := serve(t, h, http.MethodPost, "/api/predict", "application/json", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			resp, _ := decodeEnvelope(t, rec)
			assert.False(t, resp.OK)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Error.Message)
			}
			for field, msg := range tt.details {
				assert.Equal(t, msg, resp.Error.Details[field])
			}
			if tt.err == nil {
				assert.Zero(t, fake.calls())
			}
		})
	}
}

func TestAPIHealth(t *testing.T) {
	fake := newFakeAPI()
	h := New(fake).Routes()

	rec := serve(t, h, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"data":{"healthy":true}}`, rec.Body.String())

	fake.healthy = false
	rec = serve(t, h, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp, _ := decodeEnvelope(t, rec)
	assert.Equal(t, "upstream_unavailable", resp.Error.Code)
}

func TestDecodeValues(t *testing.T) {
	values, bad := decodeValues(map[string]json.RawMessage{
		applicant.PersonAge:     json.RawMessage(`35`),
		applicant.LoanIntRate:   json.RawMessage(`"12.5"`),
		applicant.LoanGrade:     json.RawMessage(`null`),
		applicant.DefaultOnFile: json.RawMessage(`true`),
	})

	assert.Equal(t, "35", values.Get(applicant.PersonAge))
	assert.Equal(t, "12.5", values.Get(applicant.LoanIntRate))
	assert.Equal(t, "", values.Get(applicant.LoanGrade))
	assert.Equal(t, applicant.FieldErrors{applicant.DefaultOnFile: "Must be a string or number"}, bad)
	assert.Len(t, values, len(applicant.Fields))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := New(newFakeAPI(), WithLogger(logger)).Routes()

	rec := serve(t, h, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	line := buf.String()
	assert.Contains(t, line, "msg=http")
	assert.Contains(t, line, "method=GET")
	assert.Contains(t, line, "status=200")
	assert.Contains(t, line, "request_id="+rec.Header().Get("X-Request-ID"))
}
