package form

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benniella/Credit-Risk-Prediction/internal/applicant"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
	"github.com/benniella/Credit-Risk-Prediction/internal/utils/slogx"
	"github.com/google/uuid"
)

const fallbackMessage = "Unable to get prediction. Please try again."

var ErrBusy = errors.New("a prediction is already in progress")

// Predictor - удаленная модель: пробуждение и прогноз
type Predictor interface {
	WakeUp(ctx context.Context) bool
	Predict(ctx context.Context, profile *applicant.Profile) (*riskapi.Result, error)
}

type Stage string

const (
	StageWaking     Stage = "waking"
	StagePredicting Stage = "predicting"
	StageDone       Stage = "done"
)

// ProgressFunc получает этапы отправки анкеты
type ProgressFunc func(Stage)

// Form - состояние одной формы анкеты
type Form struct {
	mu          sync.Mutex
	id          string
	predictor   Predictor
	logger      *slog.Logger
	values      applicant.Values
	errors      applicant.FieldErrors
	serverError string
	result      *riskapi.Result
	loading     bool
}

// View - снимок состояния формы для отображения
type View struct {
	ID          string
	Values      applicant.Values
	Errors      applicant.FieldErrors
	ServerError string
	Result      *riskapi.Result
	Loading     bool
}

type Option func(*Form)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// WithID задает идентификатор формы вместо случайного
func WithID(id string) Option {
	return func(f *Form) {
		if id != "" {
			f.id = id
		}
	}
}

func New(predictor Predictor, opts ...Option) *Form {
	f := &Form{
		id:        uuid.NewString(),
		predictor: predictor,
		values:    applicant.EmptyValues(),
		errors:    make(applicant.FieldErrors),
	}
	for _, option := range opts {
		option(f)
	}
	return f
}

func (f *Form) ID() string {
	return f.id
}

// Change обновляет поле, сбрасывая его ошибку и ошибку сервера.
// Возвращает false для неизвестного поля
func (f *Form) Change(name, value string) bool {
	if _, ok := applicant.FieldByName(name); !ok {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values.Set(name, value)
	delete(f.errors, name)
	f.serverError = ""
	return true
}

// Fill применяет Change ко всем известным полям values
func (f *Form) Fill(values applicant.Values) {
	for name, value := range values {
		f.Change(name, value)
	}
}

// Reset возвращает форму в начальное состояние. Во время отправки недоступен
func (f *Form) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loading {
		return ErrBusy
	}
	f.values = applicant.EmptyValues()
	f.errors = make(applicant.FieldErrors)
	f.serverError = ""
	f.result = nil
	return nil
}

// Submit проверяет анкету, будит сервер и запрашивает прогноз.
// При ошибках проверки сетевых запросов нет, ошибки полей возвращаются как applicant.FieldErrors
func (f *Form) Submit(ctx context.Context, progress ProgressFunc) (*riskapi.Result, error) {
	if progress == nil {
		progress = func(Stage) {}
	}

	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.serverError = ""
	f.result = nil

	profile, err := applicant.BuildPayload(f.values)
	if err != nil {
		var fieldErrs applicant.FieldErrors
		if errors.As(err, &fieldErrs) {
			f.errors = fieldErrs
		}
		f.mu.Unlock()
		return nil, err
	}
	f.errors = make(applicant.FieldErrors)
	f.loading = true
	f.mu.Unlock()

	start := time.Now()
	progress(StageWaking)
	awake := f.predictor.WakeUp(ctx)

	progress(StagePredicting)
	result, err := f.predictor.Predict(ctx, profile)

	f.mu.Lock()
	f.loading = false
	if err != nil {
		msg := riskapi.Message(err)
		if msg == "" {
			msg = fallbackMessage
		}
		f.serverError = msg
	} else {
		f.result = result
	}
	f.mu.Unlock()
	progress(StageDone)

	f.log(err, "prediction finished",
		"form", f.id,
		"awake", awake,
		slogx.Since(start),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *Form) log(err error, msg string, args ...any) {
	if f.logger == nil {
		return
	}
	if err != nil {
		f.logger.Warn(msg, append(args, "error", err)...)
		return
	}
	f.logger.Info(msg, args...)
}

// View возвращает копию текущего состояния
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := make(applicant.FieldErrors, len(f.errors))
	for k, v := range f.errors {
		errs[k] = v
	}
	var result *riskapi.Result
	if f.result != nil {
		r := *f.result
		result = &r
	}
	return View{
		ID:          f.id,
		Values:      f.values.Clone(),
		Errors:      errs,
		ServerError: f.serverError,
		Result:      result,
		Loading:     f.loading,
	}
}
