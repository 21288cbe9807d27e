package csvio

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

func importModel() *schema.TableModel {
	return &schema.TableModel{
		Table: "inscription_test",
		Fields: []schema.FieldDescriptor{
			{Column: "id", Logical: schema.TypeInteger},
			{Column: "Nombre", Logical: schema.TypeString},
			{Column: "Edad", Logical: schema.TypeInteger},
			{Column: "aprobado", Logical: schema.TypeBoolean},
			{Column: "Fecha", Logical: schema.TypeDate},
		},
	}
}

func TestCoerceCell(t *testing.T) {
	cases := []struct {
		logical schema.LogicalType
		cell    string
		want    any
	}{
		{schema.TypeInteger, "", nil},
		{schema.TypeInteger, "42", int64(42)},
		{schema.TypeInteger, "not-a-number", nil},
		{schema.TypeBigInt, " 7 ", int64(7)},
		{schema.TypeDecimal, "3.14", 3.14},
		{schema.TypeBoolean, "", nil},
		{schema.TypeBoolean, "true", true},
		{schema.TypeBoolean, "1", true},
		{schema.TypeBoolean, "yes", false},
		{schema.TypeBoolean, "false", false},
		{schema.TypeString, "  hola  ", "hola"},
		{schema.TypeString, "", ""},
		{schema.TypeDate, "", nil},
		{schema.TypeDate, "2026-01-15", "2026-01-15"},
	}
	for _, tc := range cases {
		got := coerceCell(tc.logical, tc.cell)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("coerceCell(%q, %q) = %#v, want %#v", tc.logical, tc.cell, got, tc.want)
		}
	}
}

func TestRowsFromCSV(t *testing.T) {
	model := importModel()
	header := []string{"id", "Nombre", "Edad", "desconocida", "aprobado"}
	records := [][]string{
		{"9", "Ana", "31", "x", "true"},
		{"10", "Luis", "", "y", ""},
		{"11", "Rosa"}, // ragged row: missing cells read as blank
	}
	rows := rowsFromCSV(model, header, records)
	want := []domain.Record{
		{"Nombre": "Ana", "Edad": int64(31), "aprobado": true},
		{"Nombre": "Luis", "Edad": nil, "aprobado": nil},
		{"Nombre": "Rosa", "Edad": nil, "aprobado": nil},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rowsFromCSV:\n got %#v\nwant %#v", rows, want)
	}
}

func TestWriteTemplate(t *testing.T) {
	model := importModel()
	var buf bytes.Buffer
	if err := writeTemplate(model, &buf); err != nil {
		t.Fatalf("writeTemplate: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("template must have header plus one example row, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], []string{"id", "Nombre", "Edad", "aprobado", "Fecha"}) {
		t.Fatalf("header = %#v", records[0])
	}
	if records[1][1] != "ejemplo_nombre" {
		t.Fatalf("example cell = %q", records[1][1])
	}
}

func TestWriteTemplateNoColumns(t *testing.T) {
	model := &schema.TableModel{Table: "inscription_vacia"}
	err := writeTemplate(model, &bytes.Buffer{})
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestCellStringRoundTrip(t *testing.T) {
	// Export cells must coerce back to the same stored values.
	model := importModel()
	cases := []struct {
		column string
		stored any
	}{
		{"Nombre", "Ana"},
		{"Edad", int64(31)},
		{"aprobado", true},
		{"Edad", nil},
	}
	for _, tc := range cases {
		field, _ := model.Field(tc.column)
		cell := cellString(tc.stored)
		back := coerceCell(field.Logical, cell)
		if !reflect.DeepEqual(back, tc.stored) {
			t.Errorf("%s: %#v -> %q -> %#v", tc.column, tc.stored, cell, back)
		}
	}
	if cellString(false) != "false" {
		t.Error("false must export as the literal false")
	}
}
