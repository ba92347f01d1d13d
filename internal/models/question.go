package models

// QuestionType is the closed set of question kinds. The string values are the wire
// names used by stored surveys.
type QuestionType string

const (
	TypeShortText    QuestionType = "short"
	TypeParagraph    QuestionType = "paragraph"
	TypeSingleChoice QuestionType = "test"
	TypeMultiChoice  QuestionType = "multi"
	TypeDropdown     QuestionType = "dropdown"
	TypeFile         QuestionType = "file"
	TypeScale        QuestionType = "scale"
	TypeRating       QuestionType = "rating"
	TypeGridRadio    QuestionType = "grid_radio"
	TypeGridCheck    QuestionType = "grid_check"
	TypeDate         QuestionType = "date"
	TypeTime         QuestionType = "time"
)

// QuestionTypes lists every type in declaration order.
var QuestionTypes = []QuestionType{
	TypeShortText, TypeParagraph, TypeSingleChoice, TypeMultiChoice, TypeDropdown, TypeFile,
	TypeScale, TypeRating, TypeGridRadio, TypeGridCheck, TypeDate, TypeTime,
}

// Shape is the structure an answer value must have for a question type.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeList
	ShapeRowMap
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeList:
		return "list"
	case ShapeRowMap:
		return "row-map"
	}
	return "unknown"
}

// Category says how answers to a type may be aggregated.
type Category int

const (
	// CategoryNone covers free text, date, time, file and grid answers.
	CategoryNone Category = iota
	CategoryChoice
	// CategoryOrdinal types are tabulated and also get numeric summaries.
	CategoryOrdinal
)

// Attributes describe which schema fields a type uses and how it aggregates.
type Attributes struct {
	Shape    Shape
	Category Category
	Options  bool // options must be non-empty
	Grid     bool // rows and columns must be non-empty
}

// Attributes returns the variant description for t. ok is false for unknown types.
func (t QuestionType) Attributes() (Attributes, bool) {
	switch t {
	case TypeShortText, TypeParagraph, TypeFile, TypeDate, TypeTime:
		return Attributes{Shape: ShapeScalar, Category: CategoryNone}, true
	case TypeSingleChoice, TypeDropdown:
		return Attributes{Shape: ShapeScalar, Category: CategoryChoice, Options: true}, true
	case TypeMultiChoice:
		return Attributes{Shape: ShapeList, Category: CategoryChoice, Options: true}, true
	case TypeScale, TypeRating:
		return Attributes{Shape: ShapeScalar, Category: CategoryOrdinal, Options: true}, true
	case TypeGridRadio, TypeGridCheck:
		return Attributes{Shape: ShapeRowMap, Category: CategoryNone, Grid: true}, true
	}
	return Attributes{}, false
}

// Valid reports whether t is part of the enumeration.
func (t QuestionType) Valid() bool {
	_, ok := t.Attributes()
	return ok
}

// Tabulated reports whether answers of this type get a frequency table.
func (t QuestionType) Tabulated() bool {
	a, ok := t.Attributes()
	return ok && a.Category != CategoryNone
}

// Numeric reports whether numeric statistics are meaningful for this type.
func (t QuestionType) Numeric() bool {
	a, ok := t.Attributes()
	return ok && a.Category == CategoryOrdinal
}

// IsGrid reports whether t is a row by column matrix.
func (t QuestionType) IsGrid() bool {
	return t == TypeGridRadio || t == TypeGridCheck
}

// ExpectedValueShape is shared by validation and aggregation so both agree on what a
// well-formed answer to q looks like. Unknown types are treated as scalar.
func ExpectedValueShape(q Question) Shape {
	a, ok := q.Type.Attributes()
	if !ok {
		return ShapeScalar
	}
	return a.Shape
}
