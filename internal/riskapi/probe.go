package riskapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikita55612/httpx"
)

// WakeUp отправляет GET / чтобы разбудить засыпающий сервер.
// Возвращает true, если сервер ответил статусом 2xx до истечения таймаута. Параллельные вызовы
// ждут один общий запрос
func (c *Client) WakeUp(ctx context.Context) bool {
	ch := c.wake.DoChan("wake", func() (any, error) {
		start := time.Now()
		_, err := c.ping(context.WithoutCancel(ctx), c.wakeTimeout)
		c.log(slog.LevelDebug, "wake-up probe finished",
			"ok", err == nil,
			"elapsed", time.Since(start),
		)
		return err == nil, nil
	})

	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

type rootResponse struct {
	Message string `json:"message"`
}

// CheckHealth проверяет, что по адресу отвечает именно API прогноза
func (c *Client) CheckHealth(ctx context.Context) bool {
	body, err := c.ping(ctx, 0)
	if err != nil {
		return false
	}
	var response rootResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return false
	}
	return strings.Contains(response.Message, HealthMessage)
}

func (c *Client) ping(ctx context.Context, timeout time.Duration) ([]byte, error) {
	req := httpx.Get(c.endpoint("/")).
		WithHeader("Accept", "application/json").
		WithContext(ctx)
	if timeout > 0 {
		req = req.WithTimeout(timeout)
	}
	res, err := req.Build().Do()
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return res.ReadBody()
}
