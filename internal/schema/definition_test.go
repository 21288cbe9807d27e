package schema

import (
	"strings"
	"testing"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

func TestCreateTableValidation(t *testing.T) {
	d := NewDefiner(nil, nil) // validation failures never reach the database

	cases := []struct {
		name    string
		table   string
		columns []ColumnSpec
		kind    domain.Kind
	}{
		{"bad prefix", "clientes", []ColumnSpec{{Name: "Nombre", Type: TypeString}}, domain.KindInvalidInput},
		{"empty definition", "inscription_test", nil, domain.KindInvalidInput},
		{"missing column name", "inscription_test", []ColumnSpec{{Type: TypeString}}, domain.KindInvalidInput},
		{"bad column type", "inscription_test", []ColumnSpec{{Name: "x", Type: "BLOB"}}, domain.KindInvalidInput},
		{"reserved id", "inscription_test", []ColumnSpec{{Name: "id", Type: TypeInteger}}, domain.KindInvalidInput},
		{"fk without related table", "inscription_test", []ColumnSpec{{Name: "rel", Type: TypeForeignKey}}, domain.KindInvalidInput},
		{"injection in name", `inscription_x"; DROP TABLE users; --`, []ColumnSpec{{Name: "x", Type: TypeText}}, domain.KindInvalidInput},
	}
	for _, tc := range cases {
		err := d.CreateTable(tc.table, tc.columns)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if got := domain.KindOf(err); got != tc.kind {
			t.Errorf("%s: kind = %q, want %q (%v)", tc.name, got, tc.kind, err)
		}
	}
}

func TestCreateTableSQL(t *testing.T) {
	sql, err := createTableSQL("inscription_test", []ColumnSpec{
		{Name: "Nombre", Type: TypeString},
		{Name: "Edad", Type: TypeInteger, Nullable: true},
		{Name: "rel_localidad", Type: TypeForeignKey, RelatedTable: "master_localidades"},
	})
	if err != nil {
		t.Fatalf("createTableSQL: %v", err)
	}
	want := `CREATE TABLE "inscription_test" (` +
		`"id" serial PRIMARY KEY, ` +
		`"Nombre" varchar(255) NOT NULL, ` +
		`"Edad" integer, ` +
		`"rel_localidad" integer REFERENCES "master_localidades"("id") ON UPDATE CASCADE ON DELETE SET NULL)`
	if sql != want {
		t.Fatalf("createTableSQL:\n got %s\nwant %s", sql, want)
	}
}

func TestColumnDDLForeignKeyExplicitColumn(t *testing.T) {
	ddl, err := columnDDL(ColumnSpec{
		Name: "rel_doc", Type: TypeForeignKey,
		RelatedTable: "provider_docs", RelatedColumn: "doc_id",
	})
	if err != nil {
		t.Fatalf("columnDDL: %v", err)
	}
	if !strings.Contains(ddl, `REFERENCES "provider_docs"("doc_id")`) {
		t.Fatalf("explicit related column not honored: %s", ddl)
	}
}

func TestAlterTableValidation(t *testing.T) {
	d := NewDefiner(nil, nil)

	if err := d.AlterTable("pi_formulacion", nil, nil); domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("empty alter: %v", err)
	}
	if err := d.AlterTable("pi_formulacion", []ColumnSpec{{Name: "x", Type: "NOPE"}}, nil); domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("bad add column: %v", err)
	}
	if err := d.AlterTable("pi_formulacion", nil, []string{"id"}); domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("dropping id: %v", err)
	}
	if err := d.AlterTable("not_a_module", []ColumnSpec{{Name: "x", Type: TypeText}}, nil); domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("bad table prefix: %v", err)
	}
}

func TestAlterTableRejectsRedefiningColumn(t *testing.T) {
	d := NewDefiner(nil, nil)
	add := []ColumnSpec{
		{Name: "Nombre", Type: TypeString},
		{Name: "Nombre", Type: TypeText},
	}
	err := d.AlterTable("inscription_test", add, nil)
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("adding a column twice must fail before any DDL: %v", err)
	}
	if !strings.Contains(err.Error(), "editing existing columns is not allowed") {
		t.Fatalf("error must name the in-place-edit rule: %v", err)
	}
}

func TestDeleteTableValidation(t *testing.T) {
	d := NewDefiner(nil, nil)
	if err := d.DeleteTable("users"); domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("system tables are not deletable through the definer: %v", err)
	}
}
