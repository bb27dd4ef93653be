package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/drillkit/drill"
)

type exportedRow struct {
	Active *bool    `parquet:"active,optional"`
	ID     *int64   `parquet:"id,optional"`
	Name   *string  `parquet:"name,optional"`
	Score  *float64 `parquet:"score,optional"`
}

func TestEncodeParquetInfersColumnKinds(t *testing.T) {
	columns := []string{"id", "name", "score", "active"}
	result := drill.Result{
		Columns: columns,
		Rows: []drill.Row{
			drill.NewRow(columns, []any{float64(1), "x", 1.5, true}),
			drill.NewRow(columns, []any{float64(2), nil, float64(3), false}),
		},
	}

	encoded, err := EncodeParquet(result)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if encoded.RecordCount != 2 {
		t.Fatalf("RecordCount = %d", encoded.RecordCount)
	}
	want := []Column{
		{Name: "id", Kind: KindInt64},
		{Name: "name", Kind: KindString},
		{Name: "score", Kind: KindDouble},
		{Name: "active", Kind: KindBoolean},
	}
	for i, column := range want {
		if encoded.Columns[i] != column {
			t.Fatalf("column %d = %+v, want %+v", i, encoded.Columns[i], column)
		}
	}

	reader := parquet.NewGenericReader[exportedRow](bytes.NewReader(encoded.Data))
	defer func() { _ = reader.Close() }()
	rows := make([]exportedRow, 2)
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("read rows = %d", count)
	}
	if rows[0].ID == nil || *rows[0].ID != 1 || rows[1].ID == nil || *rows[1].ID != 2 {
		t.Fatalf("ids = %+v", rows)
	}
	if rows[0].Name == nil || *rows[0].Name != "x" || rows[1].Name != nil {
		t.Fatalf("names = %v/%v", rows[0].Name, rows[1].Name)
	}
	if rows[0].Score == nil || *rows[0].Score != 1.5 {
		t.Fatalf("score = %v", rows[0].Score)
	}
	if rows[1].Active == nil || *rows[1].Active {
		t.Fatalf("active = %v", rows[1].Active)
	}
}

func TestEncodeParquetKeepsJSONNumbersExact(t *testing.T) {
	columns := []string{"id", "score"}
	result := drill.Result{
		Columns: columns,
		Rows: []drill.Row{
			drill.NewRow(columns, []any{json.Number("9007199254740993"), json.Number("2")}),
			drill.NewRow(columns, []any{json.Number("4.0"), json.Number("2.5")}),
		},
	}

	encoded, err := EncodeParquet(result)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if encoded.Columns[0].Kind != KindInt64 || encoded.Columns[1].Kind != KindDouble {
		t.Fatalf("columns = %+v", encoded.Columns)
	}

	reader := parquet.NewGenericReader[exportedRow](bytes.NewReader(encoded.Data))
	defer func() { _ = reader.Close() }()
	rows := make([]exportedRow, 2)
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("reader.Read() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("read rows = %d", count)
	}
	if rows[0].ID == nil || *rows[0].ID != 9007199254740993 || rows[1].ID == nil || *rows[1].ID != 4 {
		t.Fatalf("ids = %v/%v", rows[0].ID, rows[1].ID)
	}
	if rows[0].Score == nil || *rows[0].Score != 2 || rows[1].Score == nil || *rows[1].Score != 2.5 {
		t.Fatalf("scores = %v/%v", rows[0].Score, rows[1].Score)
	}
}

func TestEncodeParquetFallsBackToStringForMixedValues(t *testing.T) {
	columns := []string{"v"}
	result := drill.Result{
		Columns: columns,
		Rows: []drill.Row{
			drill.NewRow(columns, []any{"a"}),
			drill.NewRow(columns, []any{float64(2)}),
			drill.NewRow(columns, []any{map[string]any{"k": "v"}}),
		},
	}
	encoded, err := EncodeParquet(result)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if encoded.Columns[0].Kind != KindString {
		t.Fatalf("kind = %s", encoded.Columns[0].Kind)
	}

	file, err := parquet.OpenFile(bytes.NewReader(encoded.Data), int64(len(encoded.Data)))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if file.NumRows() != 3 {
		t.Fatalf("NumRows() = %d", file.NumRows())
	}
}

func TestEncodeParquetAllNullColumnIsString(t *testing.T) {
	columns := []string{"empty"}
	result := drill.Result{Columns: columns, Rows: []drill.Row{drill.NewRow(columns, nil)}}
	encoded, err := EncodeParquet(result)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if encoded.Columns[0].Kind != KindString {
		t.Fatalf("kind = %s", encoded.Columns[0].Kind)
	}
}

func TestEncodeParquetRejectsEmptyAndDuplicateColumns(t *testing.T) {
	if _, err := EncodeParquet(drill.Result{}); err == nil {
		t.Fatal("expected error for result without columns")
	}
	if _, err := EncodeParquet(drill.Result{Columns: []string{"a", "a"}}); err == nil {
		t.Fatal("expected duplicate column error")
	}
}
