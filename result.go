package drill

import (
	"bytes"
	"encoding/json"
)

type Result struct {
	QueryID    string
	QueryState string
	Columns    []string
	Rows       []Row
}

// Row is one result row. Values are held in the order of the result's
// columns, whatever order the server used for the row's keys.
type Row struct {
	columns []string
	values  []any
}

func newResult(queryID, state string, columns []string, raw []map[string]any) Result {
	rows := make([]Row, 0, len(raw))
	for _, record := range raw {
		values := make([]any, len(columns))
		for i, column := range columns {
			values[i] = record[column]
		}
		rows = append(rows, Row{columns: columns, values: values})
	}
	return Result{
		QueryID:    queryID,
		QueryState: state,
		Columns:    columns,
		Rows:       rows,
	}
}

func NewRow(columns []string, values []any) Row {
	padded := make([]any, len(columns))
	copy(padded, values)
	return Row{columns: columns, values: padded}
}

func (r Row) Columns() []string { return r.columns }
func (r Row) Values() []any { return r.values }
func (r Row) Len() int { return len(r.columns) }

func (r Row) Get(column string) (any, bool) {
	for i, name := range r.columns {
		if name == column {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.columns))
	for i, name := range r.columns {
		out[name] = r.values[i]
	}
	return out
}

// MarshalJSON writes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Maps returns every row as a plain map.
func (r Result) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row.Map())
	}
	return out
}
