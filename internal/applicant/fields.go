package applicant

import "strconv"

type Kind int

const (
	Decimal Kind = iota
	Integer
	Select
)

// Option - вариант выпадающего списка
type Option struct {
	Value string
	Label string
}

// Field описывает поле формы: подпись, ограничения и варианты выбора
type Field struct {
	Name        string
	Label       string
	Kind        Kind
	Min         *float64
	Max         *float64
	Step        string
	Placeholder string
	RangeMsg    string   // Сообщение при выходе за Min/Max
	EmptyMsg    string   // Сообщение для пустого списка выбора
	Options     []Option // Только для Select
}

func bound(v float64) *float64 {
	return &v
}

// Fields - поля анкеты в порядке отображения
var Fields = []Field{
	{
		Name:        PersonAge,
		Label:       "Age",
		Kind:        Integer,
		Min:         bound(18),
		Max:         bound(100),
		Placeholder: "e.g., 35",
		RangeMsg:    "Must be between 18-100",
	},
	{
		Name:        PersonIncome,
		Label:       "Annual Income",
		Kind:        Decimal,
		Min:         bound(0),
		Step:        "0.01",
		Placeholder: "e.g., 50000.00",
		RangeMsg:    "Must be positive",
	},
	{
		Name:        PersonEmpLength,
		Label:       "Employment Length (Years)",
		Kind:        Decimal,
		Min:         bound(0),
		Step:        "0.1",
		Placeholder: "e.g., 5.5",
		RangeMsg:    "Must be positive",
	},
	{
		Name:        LoanAmnt,
		Label:       "Loan Amount",
		Kind:        Decimal,
		Min:         bound(0),
		Step:        "0.01",
		Placeholder: "e.g., 10000.00",
		RangeMsg:    "Must be positive",
	},
	{
		Name:        LoanIntRate,
		Label:       "Loan Interest Rate (%)",
		Kind:        Decimal,
		Min:         bound(0),
		Max:         bound(100),
		Step:        "0.01",
		Placeholder: "e.g., 12.50",
		RangeMsg:    "Must be between 0-100",
	},
	{
		Name:        LoanPercentIncome,
		Label:       "Loan Percent of Income",
		Kind:        Decimal,
		Min:         bound(0),
		Max:         bound(1),
		Step:        "0.01",
		Placeholder: "e.g., 0.25",
		RangeMsg:    "Must be between 0-1",
	},
	{
		Name:        CredHistLength,
		Label:       "Credit History Length (Years)",
		Kind:        Integer,
		Min:         bound(0),
		Placeholder: "e.g., 10",
		RangeMsg:    "Must be positive",
	},
	{
		Name:     PersonHomeOwnership,
		Label:    "Home Ownership",
		Kind:     Select,
		EmptyMsg: "Select home ownership",
		Options: []Option{
			{"RENT", "Rent"},
			{"MORTGAGE", "Mortgage"},
			{"OWN", "Own"},
			{"OTHER", "Other"},
		},
	},
	{
		Name:     LoanIntent,
		Label:    "Loan Intent",
		Kind:     Select,
		EmptyMsg: "Select loan intent",
		Options: []Option{
			{"PERSONAL", "Personal"},
			{"EDUCATION", "Education"},
			{"MEDICAL", "Medical"},
			{"VENTURE", "Venture"},
			{"HOMEIMPROVEMENT", "Home Improvement"},
			{"DEBTCONSOLIDATION", "Debt Consolidation"},
		},
	},
	{
		Name:     LoanGrade,
		Label:    "Loan Grade",
		Kind:     Select,
		EmptyMsg: "Select loan grade",
		Options: []Option{
			{"A", "A (Best)"},
			{"B", "B"},
			{"C", "C"},
			{"D", "D"},
			{"E", "E"},
			{"F", "F"},
			{"G", "G (Worst)"},
		},
	},
	{
		Name:     DefaultOnFile,
		Label:    "Default on File",
		Kind:     Select,
		EmptyMsg: "Select an option",
		Options: []Option{
			{"Y", "Yes"},
			{"N", "No"},
		},
	},
}

// FieldByName ищет описание поля по имени
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (f Field) IsSelect() bool {
	return f.Kind == Select
}

// MinAttr и MaxAttr возвращают значения html-атрибутов min/max
func (f Field) MinAttr() string {
	if f.Min == nil {
		return ""
	}
	return strconv.FormatFloat(*f.Min, 'f', -1, 64)
}

func (f Field) MaxAttr() string {
	if f.Max == nil {
		return ""
	}
	return strconv.FormatFloat(*f.Max, 'f', -1, 64)
}

func (f Field) HasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
