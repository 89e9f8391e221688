package riskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/nikita55612/httpx"
)

const maxResponseBytes = 1 << 20

// predictResponse - ответ POST /predict.
// probability приходит либо числом, либо строкой predict_proba ([p0, p1])
type predictResponse struct {
	Prediction  *float64        `json:"prediction"`
	Probability json.RawMessage `json:"probability"`
	Threshold   *float64        `json:"threshold"`
	Error       string          `json:"error"`
}

// validationIssue - элемент массива detail из ответа 422
type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// Predict отправляет анкету на POST /predict и возвращает нормализованный результат.
// Запрос прерывается по истечении таймаута клиента
func (c *Client) Predict(ctx context.Context, profile *applicant.Profile) (*Result, error) {
	const endpoint = "Predict"

	if profile == nil {
		return nil, NewError(SerDeErrorT, errors.New("empty profile")).SetEndpoint(endpoint)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyRequestError(ctx, ctx, err).SetEndpoint(endpoint)
		}
	}
	body, err := json.Marshal(profile)
	if err != nil {
		return nil, NewError(SerDeErrorT, err).SetEndpoint(endpoint)
	}

	reqCtx := ctx
	cancel := func() {}
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	res, err := httpx.Post(c.endpoint("/predict")).
		WithData(body).
		WithHeader("Content-Type", "application/json").
		WithHeader("Accept", "application/json").
		WithContext(reqCtx).
		Build().
		Do()
	if err != nil {
		apiErr := classifyRequestError(ctx, reqCtx, err).SetEndpoint(endpoint)
		c.log(slog.LevelWarn, "prediction request failed", "error", apiErr)
		return nil, apiErr
	}
	defer res.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyRequestError(ctx, reqCtx, err).SetEndpoint(endpoint)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := errorMessage(res.StatusCode, res.Header.Get("Content-Type"), data)
		c.log(slog.LevelWarn, "prediction rejected", "status", res.StatusCode, "message", msg)
		return nil, &Error{
			Type:     ServerResponseErrorT,
			Err:      errors.New(msg),
			Endpoint: endpoint,
			Status:   res.StatusCode,
		}
	}

	result, err := decodeResult(data)
	if err != nil {
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			apiErr = NewError(SerDeErrorT, err)
		}
		apiErr = apiErr.SetEndpoint(endpoint)
		apiErr.Status = res.StatusCode
		return nil, apiErr
	}

	return result, nil
}

// classifyRequestError различает отмену вызывающей стороной, таймаут и сетевую ошибку.
// ctx - контекст вызывающего, reqCtx - контекст запроса с таймаутом клиента
func classifyRequestError(ctx, reqCtx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return NewError(CanceledErrorT, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return NewError(TimeoutErrorT, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(TimeoutErrorT, err)
	}
	// rate.Limiter сообщает о нехватке времени до дедлайна без context.DeadlineExceeded
	if _, ok := ctx.Deadline(); ok && strings.Contains(err.Error(), "exceed context deadline") {
		return NewError(TimeoutErrorT, err)
	}

	return NewError(NetworkErrorT, err)
}

func decodeResult(data []byte) (*Result, error) {
	var response predictResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, NewError(SerDeErrorT, err)
	}
	if response.Error != "" {
		return nil, NewError(ServerResponseErrorT, errors.New(response.Error))
	}
	if response.Prediction == nil || isNullJSON(response.Probability) {
		return nil, NewError(InvalidResponseErrorT, errors.New(invalidMessage))
	}

	probability, err := defaultProbability(response.Probability)
	if err != nil {
		return nil, NewError(InvalidResponseErrorT, errors.New(invalidMessage))
	}
	var threshold float64
	if response.Threshold != nil {
		threshold = *response.Threshold
	}

	return newResult(int(*response.Prediction), probability, threshold), nil
}

// defaultProbability берет вероятность дефолта: число как есть, у строки predict_proba - последний класс
func defaultProbability(raw json.RawMessage) (float64, error) {
	var p float64
	if err := json.Unmarshal(raw, &p); err == nil {
		return p, nil
	}
	var row []float64
	if err := json.Unmarshal(raw, &row); err != nil {
		return 0, err
	}
	if len(row) == 0 {
		return 0, fmt.Errorf("empty probability row")
	}

	return row[len(row)-1], nil
}

// errorMessage собирает читаемое сообщение из тела неуспешного ответа
func errorMessage(status int, contentType string, body []byte) string {
	msg := fmt.Sprintf("Request failed with status %d", status)

	if !strings.Contains(contentType, "application/json") {
		if len(body) > 0 {
			return string(body)
		}
		return msg
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		if json.Valid(body) {
			return compactJSON(body)
		}
		return msg
	}
	detail, ok := obj["detail"]
	if !ok || isFalsyJSON(detail) {
		return compactJSON(body)
	}

	var issues []validationIssue
	if err := json.Unmarshal(detail, &issues); err == nil {
		parts := make([]string, len(issues))
		for i, issue := range issues {
			parts[i] = issue.String()
		}
		return strings.Join(parts, ", ")
	}
	var s string
	if err := json.Unmarshal(detail, &s); err == nil {
		return s
	}

	return compactJSON(detail)
}

func (v validationIssue) String() string {
	if len(v.Loc) == 0 {
		return v.Msg
	}
	var field string
	switch loc := v.Loc[len(v.Loc)-1].(type) {
	case string:
		field = loc
	case float64:
		field = strconv.FormatFloat(loc, 'f', -1, 64)
	default:
		field = fmt.Sprint(loc)
	}

	return field + ": " + v.Msg
}

func compactJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

func isNullJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func isFalsyJSON(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", `""`, "false", "0":
		return true
	}
	return false
}
