package server

import (
	"errors"
	"net/http"

	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/benniella/Credit-Risk-Prediction/internal/form"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
)

type fieldView struct {
	applicant.Field
	Value string
	Error string
}

func (f fieldView) Selected(value string) bool {
	return f.Value == value
}

type pageData struct {
	Fields      []fieldView
	ServerError string
	Result      *riskapi.Result
}

func newPageData(v form.View) pageData {
	data := pageData{
		Fields:      make([]fieldView, 0, len(applicant.Fields)),
		ServerError: v.ServerError,
		Result:      v.Result,
	}
	for _, f := range applicant.Fields {
		data.Fields = append(data.Fields, fieldView{
			Field: f,
			Value: v.Values[f.Name],
			Error: v.Errors[f.Name],
		})
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, v form.View) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, newPageData(v)); err != nil {
		s.logger.Error("render page", "request_id", RequestIDFrom(r.Context()), "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, form.View{Values: applicant.EmptyValues()})
}

// handleSubmit - отправка формы без JavaScript: прогноз выполняется в рамках запроса
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	f := s.newForm(r)
	f.Fill(applicant.ValuesFromForm(r.PostForm))

	status := http.StatusOK
	var fieldErrs applicant.FieldErrors
	if _, err := f.Submit(r.Context(), nil); errors.As(err, &fieldErrs) {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, f.View())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) newForm(r *http.Request) *form.Form {
	return form.New(s.api,
		form.WithID(RequestIDFrom(r.Context())),
		form.WithLogger(s.logger),
	)
}
