package record

import (
	"reflect"
	"testing"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

func fkConstraint() *string {
	c := "FOREIGN KEY"
	return &c
}

func testModel() *schema.TableModel {
	return &schema.TableModel{
		Table: "pi_formulacion",
		Fields: []schema.FieldDescriptor{
			{Column: "id", Logical: schema.TypeInteger},
			{Column: "caracterizacion_id", Logical: schema.TypeInteger, Constraint: fkConstraint(), ForeignTable: "inscription_caracterizacion"},
			{Column: "Nombre", Logical: schema.TypeString},
			{Column: "aprobado", Logical: schema.TypeBoolean},
			{Column: "localidad", Logical: schema.TypeString},
		},
	}
}

func TestFilterToColumns(t *testing.T) {
	model := testModel()
	got := filterToColumns(model, domain.Record{
		"id":      7,    // stripped: generated key
		"Nombre":  "Ana",
		"ghost":   "x",  // unknown column dropped silently
		"aprobado": nil, // nil values dropped
	})
	want := domain.Record{"Nombre": "Ana"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("filterToColumns = %#v, want %#v", got, want)
	}
}

func TestNormalizeBooleans(t *testing.T) {
	model := testModel()
	rows := []domain.Record{
		{"aprobado": int64(1), "Nombre": "a"},
		{"aprobado": "true"},
		{"aprobado": []byte("0")},
		{"aprobado": nil},
		{"aprobado": false},
	}
	normalizeBooleans(model, rows)
	wants := []any{true, true, false, nil, false}
	for i, want := range wants {
		if got := rows[i]["aprobado"]; got != want {
			t.Errorf("row %d: aprobado = %#v, want %#v", i, got, want)
		}
	}
	if rows[0]["Nombre"] != "a" {
		t.Error("non-boolean columns must stay untouched")
	}
}

func TestDiffFields(t *testing.T) {
	model := testModel()
	prior := domain.Record{"Nombre": "Ana", "localidad": "Usme", "aprobado": nil}
	fields := domain.Record{"Nombre": "Ana Maria", "localidad": "Usme", "aprobado": true}

	changes := diffFields(prior, fields, sortedColumns(model, fields))
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %#v", len(changes), changes)
	}
	// model order: Nombre before aprobado, unchanged localidad omitted
	if changes[0].Column != "Nombre" || changes[1].Column != "aprobado" {
		t.Fatalf("unexpected change order: %#v", changes)
	}
	if *changes[0].OldValue != "Ana" || *changes[0].NewValue != "Ana Maria" {
		t.Fatalf("Nombre change = %#v", changes[0])
	}
	if changes[1].OldValue != nil || *changes[1].NewValue != "true" {
		t.Fatalf("aprobado change = %#v", changes[1])
	}
}

func TestBuildListQueryPlain(t *testing.T) {
	model := &schema.TableModel{
		Table: "provider_proveedores",
		Fields: []schema.FieldDescriptor{
			{Column: "id", Logical: schema.TypeInteger},
			{Column: "Nombre", Logical: schema.TypeString},
		},
	}
	sql, args, err := buildListQuery(model, domain.ModuleProvider, map[string]string{"Nombre": "Acme", "ghost": "x"}, domain.Identity{})
	if err != nil {
		t.Fatalf("buildListQuery: %v", err)
	}
	want := `SELECT t.* FROM "provider_proveedores" t WHERE t."Nombre" = ? ORDER BY t."id"`
	if sql != want {
		t.Fatalf("sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 1 || args[0] != "Acme" {
		t.Fatalf("args = %#v", args)
	}
}

func TestBuildListQueryPiJoinAndManagerFilter(t *testing.T) {
	model := testModel()
	ident := domain.Identity{Role: domain.RoleManager, Localidad: "Bosa"}
	sql, args, err := buildListQuery(model, domain.ModulePi, nil, ident)
	if err != nil {
		t.Fatalf("buildListQuery: %v", err)
	}

	want := `SELECT t.* FROM "pi_formulacion" t` +
		` JOIN "inscription_caracterizacion" c ON c."id" = t."caracterizacion_id" AND c."estado" = ?` +
		` WHERE t."localidad" = ? ORDER BY t."id"`
	if sql != want {
		t.Fatalf("sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 2 || args[0] != activeStateCode || args[1] != "Bosa" {
		t.Fatalf("args = %#v", args)
	}
}

func TestBuildListQueryNoJoinForCharacterizationOrMissingFK(t *testing.T) {
	noFK := &schema.TableModel{
		Table:  "pi_libre",
		Fields: []schema.FieldDescriptor{{Column: "id", Logical: schema.TypeInteger}},
	}
	sql, _, err := buildListQuery(noFK, domain.ModulePi, nil, domain.Identity{})
	if err != nil {
		t.Fatalf("buildListQuery: %v", err)
	}
	if sql != `SELECT t.* FROM "pi_libre" t ORDER BY t."id"` {
		t.Fatalf("tables without the characterization fk must not join: %s", sql)
	}
}

func TestBuildListQueryCoercesTypedFilters(t *testing.T) {
	model := testModel()
	filters := map[string]string{"caracterizacion_id": "9", "aprobado": "true"}
	_, args, err := buildListQuery(model, domain.ModuleProvider, filters, domain.Identity{})
	if err != nil {
		t.Fatalf("buildListQuery: %v", err)
	}
	// model order: caracterizacion_id before aprobado
	if len(args) != 2 || args[0] != int64(9) || args[1] != true {
		t.Fatalf("args = %#v, want typed values", args)
	}
}

func TestBuildListQueryRejectsUnparsableFilter(t *testing.T) {
	model := testModel()
	cases := []map[string]string{
		{"caracterizacion_id": "not-a-number"},
		{"aprobado": "maybe"},
	}
	for _, filters := range cases {
		_, _, err := buildListQuery(model, domain.ModuleProvider, filters, domain.Identity{})
		if domain.KindOf(err) != domain.KindInvalidInput {
			t.Errorf("filters %v: expected invalid_input, got %v", filters, err)
		}
	}
}

func TestBuildInsertSQL(t *testing.T) {
	sql := buildInsertSQL("inscription_test", []string{"Nombre", "Edad"})
	want := `INSERT INTO "inscription_test" ("Nombre", "Edad") VALUES (?, ?) RETURNING "id"`
	if sql != want {
		t.Fatalf("sql = %s", sql)
	}
}

func TestUpsertKeyFor(t *testing.T) {
	if _, always := upsertKeyFor("pi_propuesta_mejora"); !always {
		t.Fatal("pi_propuesta_mejora must always insert")
	}
	if key, always := upsertKeyFor("pi_encuesta_salida"); always || !reflect.DeepEqual(key, []string{"caracterizacion_id", "componente", "pregunta"}) {
		t.Fatalf("pi_encuesta_salida key = %#v, always = %v", key, always)
	}
	if key, always := upsertKeyFor("pi_formulacion_prov"); always || !reflect.DeepEqual(key, []string{"caracterizacion_id", "rel_proveedor"}) {
		t.Fatalf("pi_formulacion_prov key = %#v", key)
	}
	if key, always := upsertKeyFor("pi_diagnostico"); always || !reflect.DeepEqual(key, []string{"caracterizacion_id"}) {
		t.Fatalf("default pi key = %#v", key)
	}
}

func TestFormatValue(t *testing.T) {
	if formatValue(nil) != nil {
		t.Fatal("nil stays nil")
	}
	if got := *formatValue(42); got != "42" {
		t.Fatalf("int = %q", got)
	}
	if got := *formatValue(1.50); got != "1.5" {
		t.Fatalf("float = %q", got)
	}
	if got := *formatValue([]byte("x")); got != "x" {
		t.Fatalf("bytes = %q", got)
	}
}
