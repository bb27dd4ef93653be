package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/parquet-go/parquet-go"

	"github.com/drillkit/drill"
	"github.com/drillkit/drill/internal/observability"
)

type ColumnKind string

const (
	KindInt64   ColumnKind = "int64"
	KindDouble  ColumnKind = "double"
	KindBoolean ColumnKind = "boolean"
	KindString  ColumnKind = "string"
)

type Column struct {
	Name string
	Kind ColumnKind
}

type ParquetEncodeResult struct {
	Data        []byte
	RecordCount int64
	Columns     []Column
}

// EncodeParquet writes result as a single Parquet file. Every column is
// optional; its physical type is inferred from the non-null values.
func EncodeParquet(result drill.Result) (ParquetEncodeResult, error) {
	if len(result.Columns) == 0 {
		return ParquetEncodeResult{}, fmt.Errorf("result has no columns")
	}

	columns := make([]Column, 0, len(result.Columns))
	group := parquet.Group{}
	for i, name := range result.Columns {
		if _, dup := group[name]; dup {
			return ParquetEncodeResult{}, fmt.Errorf("duplicate column %q", name)
		}
		kind := inferKind(result.Rows, i)
		columns = append(columns, Column{Name: name, Kind: kind})
		group[name] = parquet.Optional(nodeFor(kind))
	}
	schema := parquet.NewSchema("drill_result", group)

	indexes := make([]int, len(columns))
	for i, column := range columns {
		leaf, ok := schema.Lookup(column.Name)
		if !ok {
			return ParquetEncodeResult{}, fmt.Errorf("column %q missing from schema", column.Name)
		}
		indexes[i] = leaf.ColumnIndex
	}

	rows := make([]parquet.Row, 0, len(result.Rows))
	for rowIndex, row := range result.Rows {
		values := row.Values()
		out := make(parquet.Row, len(columns))
		for i, column := range columns {
			var value any
			if i < len(values) {
				value = values[i]
			}
			encoded, err := valueFor(column.Kind, value)
			if err != nil {
				return ParquetEncodeResult{}, fmt.Errorf("row %d column %q: %w", rowIndex, column.Name, err)
			}
			definition := 1
			if encoded.IsNull() {
				definition = 0
			}
			out[indexes[i]] = encoded.Level(0, definition, indexes[i])
		}
		rows = append(rows, out)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	observability.AddExportedRows(int64(len(rows)))
	return ParquetEncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
		Columns:     columns,
	}, nil
}

func nodeFor(kind ColumnKind) parquet.Node {
	switch kind {
	case KindInt64:
		return parquet.Int(64)
	case KindDouble:
		return parquet.Leaf(parquet.DoubleType)
	case KindBoolean:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

func inferKind(rows []drill.Row, column int) ColumnKind {
	var kind ColumnKind
	for _, row := range rows {
		values := row.Values()
		if column >= len(values) || values[column] == nil {
			continue
		}
		next := kindOf(values[column])
		switch {
		case kind == "":
			kind = next
		case kind == next:
		case isNumeric(kind) && isNumeric(next):
			kind = KindDouble
		default:
			return KindString
		}
	}
	if kind == "" {
		return KindString
	}
	return kind
}

func kindOf(value any) ColumnKind {
	switch typed := value.(type) {
	case bool:
		return KindBoolean
	case int, int32, int64:
		return KindInt64
	case float32:
		return kindOf(float64(typed))
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<63 {
			return KindInt64
		}
		return KindDouble
	case json.Number:
		if _, err := typed.Int64(); err == nil {
			return KindInt64
		}
		if f, err := typed.Float64(); err == nil {
			return kindOf(f)
		}
		return KindString
	default:
		return KindString
	}
}

func isNumeric(kind ColumnKind) bool {
	return kind == KindInt64 || kind == KindDouble
}

func valueFor(kind ColumnKind, value any) (parquet.Value, error) {
	if value == nil {
		return parquet.NullValue(), nil
	}
	switch kind {
	case KindInt64:
		switch typed := value.(type) {
		case int:
			return parquet.ValueOf(int64(typed)), nil
		case int32:
			return parquet.ValueOf(int64(typed)), nil
		case int64:
			return parquet.ValueOf(typed), nil
		case float32:
			return parquet.ValueOf(int64(typed)), nil
		case float64:
			return parquet.ValueOf(int64(typed)), nil
		case json.Number:
			if n, err := typed.Int64(); err == nil {
				return parquet.ValueOf(n), nil
			}
			f, err := typed.Float64()
			if err != nil {
				return parquet.Value{}, err
			}
			return parquet.ValueOf(int64(f)), nil
		}
	case KindDouble:
		switch typed := value.(type) {
		case int:
			return parquet.ValueOf(float64(typed)), nil
		case int32:
			return parquet.ValueOf(float64(typed)), nil
		case int64:
			return parquet.ValueOf(float64(typed)), nil
		case float32:
			return parquet.ValueOf(float64(typed)), nil
		case float64:
			return parquet.ValueOf(typed), nil
		case json.Number:
			f, err := typed.Float64()
			if err != nil {
				return parquet.Value{}, err
			}
			return parquet.ValueOf(f), nil
		}
	case KindBoolean:
		if typed, ok := value.(bool); ok {
			return parquet.ValueOf(typed), nil
		}
	default:
		if typed, ok := value.(string); ok {
			return parquet.ValueOf(typed), nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.ValueOf(string(encoded)), nil
	}
	return parquet.Value{}, fmt.Errorf("unexpected %T for %s column", value, kind)
}
