package riskapi

import "strconv"

const (
	LabelDefault   = "Default"
	LabelNoDefault = "No Default"

	DefaultThreshold = 0.5
)

// Result - нормализованный ответ модели
type Result struct {
	Class              int     `json:"class"`               // 1 - дефолт, 0 - нет
	Prediction         string  `json:"prediction"`          // "Default" / "No Default"
	DefaultProbability float64 `json:"default_probability"` // Вероятность дефолта (0..1)
	Threshold          float64 `json:"threshold"`           // Порог классификации
}

func newResult(class int, probability float64, threshold float64) *Result {
	label := LabelNoDefault
	if class == 1 {
		label = LabelDefault
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Result{
		Class:              class,
		Prediction:         label,
		DefaultProbability: probability,
		Threshold:          threshold,
	}
}

func (r *Result) IsDefault() bool {
	return r.Class == 1
}

// ProbabilityPercent форматирует вероятность в процентах с двумя знаками: 0.8 -> "80.00%"
func (r *Result) ProbabilityPercent() string {
	return strconv.FormatFloat(r.DefaultProbability*100, 'f', 2, 64) + "%"
}

// ThresholdString возвращает порог в кратчайшей записи: 0.5 -> "0.5"
func (r *Result) ThresholdString() string {
	return strconv.FormatFloat(r.Threshold, 'f', -1, 64)
}
