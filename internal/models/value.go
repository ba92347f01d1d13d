package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueScalar
	ValueList
	ValueRowMap
)

// Value is an answer payload: a scalar string, an ordered list of strings, or a map
// from grid row label to the selected column labels. Grid-radio rows hold at most one
// column. The zero Value is absent.
type Value struct {
	kind  ValueKind
	text  string
	items []string
	rows  map[string][]string
	multi bool
}

// Text builds a scalar value.
func Text(s string) Value {
	return Value{kind: ValueScalar, text: s}
}

// List builds a multi-choice value.
func List(items ...string) Value {
	return Value{kind: ValueList, items: append([]string{}, items...)}
}

// RowChoice builds a grid-radio value. An empty column leaves the row unanswered.
func RowChoice(rows map[string]string) Value {
	out := make(map[string][]string, len(rows))
	for r, c := range rows {
		if c == "" {
			out[r] = nil
			continue
		}
		out[r] = []string{c}
	}
	return Value{kind: ValueRowMap, rows: out}
}

// RowChoices builds a grid-check value.
func RowChoices(rows map[string][]string) Value {
	out := make(map[string][]string, len(rows))
	for r, cs := range rows {
		out[r] = append([]string(nil), cs...)
	}
	return Value{kind: ValueRowMap, rows: out, multi: true}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == ValueAbsent }

// Shape reports the structure of v; ok is false when v is absent.
func (v Value) Shape() (Shape, bool) {
	switch v.kind {
	case ValueScalar:
		return ShapeScalar, true
	case ValueList:
		return ShapeList, true
	case ValueRowMap:
		return ShapeRowMap, true
	}
	return 0, false
}

// Text returns the scalar payload, or "" for other kinds.
func (v Value) Text() string { return v.text }

// Items returns a copy of the list payload.
func (v Value) Items() []string { return append([]string(nil), v.items...) }

// Row returns a copy of the columns selected for row.
func (v Value) Row(name string) ([]string, bool) {
	cs, ok := v.rows[name]
	return append([]string(nil), cs...), ok
}

// RowNames returns the row labels present in v, sorted.
func (v Value) RowNames() []string {
	names := make([]string, 0, len(v.rows))
	for r := range v.rows {
		names = append(names, r)
	}
	sort.Strings(names)
	return names
}

// Blank reports whether v carries no usable answer.
func (v Value) Blank() bool {
	switch v.kind {
	case ValueScalar:
		return strings.TrimSpace(v.text) == ""
	case ValueList:
		return len(v.items) == 0
	case ValueRowMap:
		for _, cs := range v.rows {
			if len(cs) > 0 {
				return false
			}
		}
		return true
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueScalar:
		return json.Marshal(v.text)
	case ValueList:
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	case ValueRowMap:
		multi := v.multi
		for _, cs := range v.rows {
			if len(cs) > 1 {
				multi = true
			}
		}
		if multi {
			out := make(map[string][]string, len(v.rows))
			for r, cs := range v.rows {
				if cs == nil {
					cs = []string{}
				}
				out[r] = cs
			}
			return json.Marshal(out)
		}
		out := make(map[string]string, len(v.rows))
		for r, cs := range v.rows {
			if len(cs) > 0 {
				out[r] = cs[0]
			} else {
				out[r] = ""
			}
		}
		return json.Marshal(out)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '[':
		items, err := decodeStrings(data)
		if err != nil {
			return err
		}
		*v = Value{kind: ValueList, items: items}
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		rows := make(map[string][]string, len(raw))
		multi := false
		for row, cell := range raw {
			cell = bytes.TrimSpace(cell)
			switch {
			case len(cell) == 0 || bytes.Equal(cell, []byte("null")):
				rows[row] = nil
			case cell[0] == '[':
				items, err := decodeStrings(cell)
				if err != nil {
					return fmt.Errorf("value: row %q: %w", row, err)
				}
				rows[row] = items
				multi = true
			default:
				s, err := decodeScalar(cell)
				if err != nil {
					return fmt.Errorf("value: row %q: %w", row, err)
				}
				if s == "" {
					rows[row] = nil
				} else {
					rows[row] = []string{s}
				}
			}
		}
		*v = Value{kind: ValueRowMap, rows: rows, multi: multi}
	default:
		s, err := decodeScalar(data)
		if err != nil {
			return err
		}
		*v = Text(s)
	}
	return nil
}

// decodeScalar accepts strings, numbers and booleans; numbers keep their literal form.
func decodeScalar(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return "", err
	}
	switch t := x.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("value: unsupported scalar %s", data)
}

func decodeStrings(data []byte) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, el := range raw {
		s, err := decodeScalar(el)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
