package applicant

import "math"

// BuildPayload приводит значения формы к типам запроса.
// Целые поля усекаются к нулю; Validate гарантирует, что они помещаются в int32
func BuildPayload(values Values) (*Profile, error) {
	if errs := Validate(values); len(errs) > 0 {
		return nil, errs
	}

	decimal := func(name string) float64 {
		v, _ := parseNumber(values.Get(name))
		return v
	}
	integer := func(name string) int {
		return int(math.Trunc(decimal(name)))
	}

	return &Profile{
		PersonAge:           integer(PersonAge),
		PersonIncome:        decimal(PersonIncome),
		PersonEmpLength:     decimal(PersonEmpLength),
		LoanAmnt:            decimal(LoanAmnt),
		LoanIntRate:         decimal(LoanIntRate),
		LoanPercentIncome:   decimal(LoanPercentIncome),
		CredHistLength:      integer(CredHistLength),
		PersonHomeOwnership: values.Get(PersonHomeOwnership),
		LoanIntent:          values.Get(LoanIntent),
		LoanGrade:           values.Get(LoanGrade),
		DefaultOnFile:       values.Get(DefaultOnFile),
	}, nil
}
