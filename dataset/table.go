// Package dataset holds the in-memory tabular model that experiments run on
// and the loaders that build it from uploaded CSV and XLSX files.
package dataset

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Numeric columns hold only numbers (and missing cells).
	Numeric Kind = iota
	// Categorical columns hold at least one non-numeric value.
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

type valueKind uint8

const (
	missingValue valueKind = iota
	numberValue
	stringValue
)

// Value is a single cell: a number, a string, or missing.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Num returns a numeric cell. NaN is stored as missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: numberValue, num: f}
}

// Str returns a string cell.
func Str(s string) Value { return Value{kind: stringValue, str: s} }

// Missing returns an empty cell.
func Missing() Value { return Value{} }

func (v Value) IsMissing() bool { return v.kind == missingValue }
func (v Value) IsNumber() bool  { return v.kind == numberValue }

// Float returns the numeric payload; ok is false for strings and missing cells.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != numberValue {
		return 0, false
	}
	return v.num, true
}

// String formats the cell the way it is used as a category or class label.
// Missing cells format as "".
func (v Value) String() string {
	switch v.kind {
	case numberValue:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case stringValue:
		return v.str
	default:
		return ""
	}
}

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Kind infers the column type: numeric when every non-missing cell is a number.
// An all-missing column counts as numeric.
func (c Column) Kind() Kind {
	for _, v := range c.Values {
		if v.kind == stringValue {
			return Categorical
		}
	}
	return Numeric
}

// DType reports a pandas-style dtype name: int64, float64 or object.
func (c Column) DType() string {
	if c.Kind() == Categorical {
		return "object"
	}
	for _, v := range c.Values {
		if v.IsMissing() || v.num != math.Trunc(v.num) {
			return "float64"
		}
	}
	return "int64"
}

// ColumnInfo describes one column of a table schema.
type ColumnInfo struct {
	Name  string `json:"name" msgpack:"name"`
	Kind  Kind   `json:"kind" msgpack:"kind"`
	DType string `json:"dtype" msgpack:"dtype"`
}

// Table is an ordered set of equally long named columns. Tables are not
// modified after construction; Select and Take return new tables.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New builds a table. Column names must be unique and all columns must have
// the same length.
func New(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.Name]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c.Name)
		}
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, errors.NewDimensionError("dataset.New", t.rows, len(c.Values), 0)
		}
		t.index[c.Name] = i
		t.columns[i] = c
	}
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column called name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Schema returns name, kind and dtype for every column in order.
func (t *Table) Schema() []ColumnInfo {
	out := make([]ColumnInfo, len(t.columns))
	for i, c := range t.columns {
		out[i] = ColumnInfo{Name: c.Name, Kind: c.Kind(), DType: c.DType()}
	}
	return out
}

// Select returns a table with the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, errors.NewValidationError("features", "unknown column", n)
		}
		cols = append(cols, c)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out, nil
}

// Drop returns a table without the named column.
func (t *Table) Drop(name string) *Table {
	names := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if c.Name != name {
			names = append(names, c.Name)
		}
	}
	out, _ := t.Select(names...)
	return out
}

// Take returns a table holding the given rows in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		columns: make([]Column, len(t.columns)),
		index:   t.index,
		rows:    len(rows),
	}
	for j, c := range t.columns {
		vals := make([]Value, len(rows))
		for i, r := range rows {
			vals[i] = c.Values[r]
		}
		out.columns[j] = Column{Name: c.Name, Values: vals}
	}
	return out
}
