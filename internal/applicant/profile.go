package applicant

import (
	"net/url"
	"strconv"
	"strings"
)

// Имена полей анкеты совпадают с ключами JSON, которые ожидает /predict
const (
	PersonAge           = "person_age"
	PersonIncome        = "person_income"
	PersonEmpLength     = "person_emp_length"
	LoanAmnt            = "loan_amnt"
	LoanIntRate         = "loan_int_rate"
	LoanPercentIncome   = "loan_percent_income"
	CredHistLength      = "cb_person_cred_hist_length"
	PersonHomeOwnership = "person_home_ownership"
	LoanIntent          = "loan_intent"
	LoanGrade           = "loan_grade"
	DefaultOnFile       = "cb_person_default_on_file"
)

// Profile - анкета заемщика в формате запроса к модели
type Profile struct {
	PersonAge           int     `json:"person_age"`                 // Возраст, лет
	PersonIncome        float64 `json:"person_income"`              // Годовой доход
	PersonEmpLength     float64 `json:"person_emp_length"`          // Стаж, лет
	LoanAmnt            float64 `json:"loan_amnt"`                  // Сумма кредита
	LoanIntRate         float64 `json:"loan_int_rate"`              // Процентная ставка, %
	LoanPercentIncome   float64 `json:"loan_percent_income"`        // Доля кредита от дохода (0..1)
	CredHistLength      int     `json:"cb_person_cred_hist_length"` // Длина кредитной истории, лет
	PersonHomeOwnership string  `json:"person_home_ownership"`      // RENT/MORTGAGE/OWN/OTHER
	LoanIntent          string  `json:"loan_intent"`                // Цель кредита
	LoanGrade           string  `json:"loan_grade"`                 // Грейд A..G
	DefaultOnFile       string  `json:"cb_person_default_on_file"`  // Y/N
}

// Values - сырые значения формы в том виде, в котором их ввел пользователь
type Values map[string]string

// Get возвращает значение поля без пробелов по краям
func (v Values) Get(name string) string {
	return strings.TrimSpace(v[name])
}

func (v Values) Set(name, value string) {
	v[name] = value
}

func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

// EmptyValues возвращает начальное состояние формы: все поля пустые
func EmptyValues() Values {
	v := make(Values, len(Fields))
	for _, f := range Fields {
		v[f.Name] = ""
	}
	return v
}

// ValuesFromForm переносит известные поля из url.Values, остальное игнорируется
func ValuesFromForm(form url.Values) Values {
	v := EmptyValues()
	for _, f := range Fields {
		v[f.Name] = form.Get(f.Name)
	}
	return v
}

func ValuesFromProfile(p *Profile) Values {
	formatFloat := func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return Values{
		PersonAge:           strconv.Itoa(p.PersonAge),
		PersonIncome:        formatFloat(p.PersonIncome),
		PersonEmpLength:     formatFloat(p.PersonEmpLength),
		LoanAmnt:            formatFloat(p.LoanAmnt),
		LoanIntRate:         formatFloat(p.LoanIntRate),
		LoanPercentIncome:   formatFloat(p.LoanPercentIncome),
		CredHistLength:      strconv.Itoa(p.CredHistLength),
		PersonHomeOwnership: p.PersonHomeOwnership,
		LoanIntent:          p.LoanIntent,
		LoanGrade:           p.LoanGrade,
		DefaultOnFile:       p.DefaultOnFile,
	}
}
