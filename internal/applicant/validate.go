package applicant

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

const (
	requiredMsg = "Required"
	notNumMsg   = "Must be a number"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// FieldErrors - ошибки проверки по именам полей
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e[name]
	}
	return "invalid applicant profile: " + strings.Join(parts, ", ")
}

// outside проверяет выход значения за границы; nil означает отсутствие границы
func outside[T Number](v T, lo, hi *T) bool {
	if lo != nil && v < *lo {
		return true
	}
	if hi != nil && v > *hi {
		return true
	}
	return false
}

var (
	minInt32 float64 = math.MinInt32
	maxInt32 float64 = math.MaxInt32
)

// isPlainDecimal допускает только запись вида [+-]цифры[.цифры], без экспоненты и hex
func isPlainDecimal(raw string) bool {
	raw = strings.TrimLeft(raw, "+-")
	intPart, frac, _ := strings.Cut(raw, ".")
	if intPart == "" && frac == "" {
		return false
	}
	for _, r := range intPart + frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Check возвращает сообщение об ошибке для значения поля или пустую строку
func (f Field) Check(raw string) string {
	raw = strings.TrimSpace(raw)
	if f.Kind == Select {
		if raw == "" {
			return f.EmptyMsg
		}
		if !f.HasOption(raw) {
			values := make([]string, len(f.Options))
			for i, o := range f.Options {
				values[i] = o.Value
			}
			return "Must be one of " + strings.Join(values, ", ")
		}
		return ""
	}

	if raw == "" {
		return requiredMsg
	}
	v, ok := parseNumber(raw)
	if !ok {
		return notNumMsg
	}
	if f.Kind == Integer && (!isPlainDecimal(raw) || outside(math.Trunc(v), &minInt32, &maxInt32)) {
		return notNumMsg
	}
	if outside(v, f.Min, f.Max) {
		return f.RangeMsg
	}
	return ""
}

// Validate проверяет все поля анкеты. Пустой результат означает, что анкету можно отправлять
func Validate(values Values) FieldErrors {
	errs := make(FieldErrors)
	for _, f := range Fields {
		if msg := f.Check(values[f.Name]); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}
