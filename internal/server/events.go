package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/benniella/Credit-Risk-Prediction/internal/form"
	"github.com/benniella/Credit-Risk-Prediction/internal/pkg/ws"
)

const (
	EventReady      = "ready"
	EventStatus     = "status"
	EventValidation = "validation"
	EventResult     = "result"
	EventError      = "error"
	EventReset      = "reset"
)

// clientMessage - команда страницы: submit, change или reset
type clientMessage struct {
	Type   string                     `json:"type"`
	Name   string                     `json:"name,omitempty"`
	Value  json.RawMessage            `json:"value,omitempty"`
	Values map[string]json.RawMessage `json:"values,omitempty"`
}

type Event struct {
	Type    string                `json:"type"`
	FormID  string                `json:"form_id,omitempty"`
	Stage   form.Stage            `json:"stage,omitempty"`
	Errors  applicant.FieldErrors `json:"errors,omitempty"`
	Result  *resultData           `json:"result,omitempty"`
	Message string                `json:"message,omitempty"`
}

// handleWS ведет одну форму на соединение и сообщает этапы отправки
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "request_id", RequestIDFrom(r.Context()), "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	sess := ws.Serve(ctx, conn)
	f := s.newForm(r)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		sess.Close()
		sess.Wait()
	}()

	send := func(e Event) {
		e.FormID = f.ID()
		if err := sess.SendJSON(e); err != nil && !errors.Is(err, ws.ErrClosed) {
			s.logger.Warn("websocket send", "form", f.ID(), "error", err)
		}
	}
	send(Event{Type: EventReady})

	for data := range sess.Messages() {
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			send(Event{Type: EventError, Message: "bad json"})
			continue
		}

		switch msg.Type {
		case "submit":
			if msg.Values != nil {
				values, bad := decodeValues(msg.Values)
				if len(bad) > 0 {
					send(Event{Type: EventValidation, Errors: bad})
					continue
				}
				f.Fill(values)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.submit(ctx, f, send)
			}()
		case "change":
			value, ok := rawValue(msg.Value)
			if !ok || !f.Change(msg.Name, value) {
				send(Event{Type: EventError, Message: "unknown field: " + msg.Name})
			}
		case "reset":
			if err := f.Reset(); err != nil {
				send(Event{Type: EventError, Message: err.Error()})
				continue
			}
			send(Event{Type: EventReset})
		default:
			send(Event{Type: EventError, Message: "unknown message type: " + msg.Type})
		}
	}
}

func (s *Server) submit(ctx context.Context, f *form.Form, send func(Event)) {
	result, err := f.Submit(ctx, func(stage form.Stage) {
		if stage != form.StageDone {
			send(Event{Type: EventStatus, Stage: stage})
		}
	})

	var fieldErrs applicant.FieldErrors
	switch {
	case err == nil:
		send(Event{Type: EventResult, Result: newResultData(f.ID(), result)})
	case errors.As(err, &fieldErrs):
		send(Event{Type: EventValidation, Errors: fieldErrs})
	case errors.Is(err, form.ErrBusy):
		send(Event{Type: EventError, Message: err.Error()})
	default:
		send(Event{Type: EventError, Message: f.View().ServerError})
	}
}
