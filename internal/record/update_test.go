package record

import (
	"testing"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

func TestUpdateEntriesOnePerChangedField(t *testing.T) {
	model := testModel()
	prior := domain.Record{"Nombre": "Ana", "localidad": "Usme", "aprobado": false}
	incoming := domain.Record{"Nombre": "Ana Maria", "localidad": "Usme", "aprobado": true}

	changes := diffFields(prior, incoming, sortedColumns(model, incoming))
	entries := updateEntries(model.Table, 5, 9, changes)

	// Two fields changed, one untouched: exactly two entries.
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %#v", len(entries), entries)
	}
	for _, e := range entries {
		if e.Table != "pi_formulacion" || e.RecordID != 5 || e.UserID != 9 {
			t.Fatalf("entry attribution wrong: %#v", e)
		}
		if e.ChangeType != domain.ChangeUpdate {
			t.Fatalf("change type = %q, want update", e.ChangeType)
		}
		if e.FieldName == nil {
			t.Fatal("update entries must carry a field name")
		}
	}
	if *entries[0].FieldName != "Nombre" || *entries[0].OldValue != "Ana" || *entries[0].NewValue != "Ana Maria" {
		t.Fatalf("Nombre entry = %#v", entries[0])
	}
	if *entries[1].FieldName != "aprobado" || *entries[1].OldValue != "false" || *entries[1].NewValue != "true" {
		t.Fatalf("aprobado entry = %#v", entries[1])
	}
	for _, e := range entries {
		if *e.FieldName == "localidad" {
			t.Fatal("unchanged fields must produce no entry")
		}
	}
}

func TestUpdateEntriesEmptyDiff(t *testing.T) {
	model := testModel()
	same := domain.Record{"Nombre": "Ana"}
	changes := diffFields(same, same, sortedColumns(model, same))
	if entries := updateEntries(model.Table, 5, 9, changes); len(entries) != 0 {
		t.Fatalf("identical values must append nothing, got %#v", entries)
	}
}

func TestCreateEntriesNullOldValues(t *testing.T) {
	model := testModel()
	fields := domain.Record{"Nombre": "Ana", "aprobado": true}

	entries := createEntries(model, 3, 7, fields)
	if len(entries) != 2 {
		t.Fatalf("expected one entry per stored field, got %d", len(entries))
	}
	// model order: Nombre before aprobado
	if *entries[0].FieldName != "Nombre" || *entries[1].FieldName != "aprobado" {
		t.Fatalf("entry order = %q, %q", *entries[0].FieldName, *entries[1].FieldName)
	}
	for _, e := range entries {
		if e.ChangeType != domain.ChangeCreate {
			t.Fatalf("change type = %q, want create", e.ChangeType)
		}
		if e.OldValue != nil {
			t.Fatalf("create entries carry null old values, got %#v", e)
		}
		if e.NewValue == nil {
			t.Fatalf("create entries carry the stored value, got %#v", e)
		}
	}
	if *entries[0].NewValue != "Ana" || *entries[1].NewValue != "true" {
		t.Fatalf("values = %q, %q", *entries[0].NewValue, *entries[1].NewValue)
	}
}
