package schema

import (
	"strings"

	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// FieldDescriptor is one introspected column of a dynamic table, mapped
// to its logical type. The descriptor list is the sole basis for value
// coercion, foreign-key expansion and CSV headers.
type FieldDescriptor struct {
	Column        string      `json:"column_name"`
	Native        string      `json:"-"`
	Logical       LogicalType `json:"data_type"`
	Nullable      bool        `json:"is_nullable"`
	Constraint    *string     `json:"constraint_type"`
	ForeignTable  string      `json:"foreign_table_name,omitempty"`
	ForeignColumn string      `json:"foreign_column_name,omitempty"`
}

// IsForeignKey reports foreign-key participation.
func (f FieldDescriptor) IsForeignKey() bool {
	return f.Constraint != nil && *f.Constraint == "FOREIGN KEY"
}

// TableModel is the synthesized in-memory descriptor of a live table:
// enough schema knowledge to perform typed CRUD without a hand-written
// model.
type TableModel struct {
	Table  string
	Fields []FieldDescriptor
}

// Field returns the descriptor for a column name, if present.
func (m *TableModel) Field(column string) (FieldDescriptor, bool) {
	for _, f := range m.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// HasColumn reports whether the live table carries the column.
func (m *TableModel) HasColumn(column string) bool {
	_, ok := m.Field(column)
	return ok
}

// Columns returns column names in catalog order.
func (m *TableModel) Columns() []string {
	out := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		out[i] = f.Column
	}
	return out
}

// FirstDisplayColumn picks the column used as a human-readable value in
// foreign-key expansions: the first non-id column, falling back to id.
func (m *TableModel) FirstDisplayColumn() string {
	for _, f := range m.Fields {
		if f.Column != "id" {
			return f.Column
		}
	}
	return "id"
}

// Synthesizer introspects live tables into TableModels. It caches
// nothing across calls; schema changes are visible to the next request.
type Synthesizer struct {
	db *gorm.DB
}

// NewSynthesizer wires the synthesizer.
func NewSynthesizer(db *gorm.DB) *Synthesizer {
	return &Synthesizer{db: db}
}

type introspectedColumn struct {
	ColumnName        string
	DataType          string
	IsNullable        string
	ConstraintType    *string
	ForeignTableName  *string
	ForeignColumnName *string
}

// introspectQuery joins the column catalog with constraint usage so each
// row carries its foreign-key target when one exists.
const introspectQuery = `
	SELECT
		c.column_name,
		c.data_type,
		c.is_nullable,
		tc.constraint_type,
		ccu.table_name  AS foreign_table_name,
		ccu.column_name AS foreign_column_name
	FROM information_schema.columns c
	LEFT JOIN information_schema.key_column_usage kcu
		ON kcu.table_schema = c.table_schema
		AND kcu.table_name = c.table_name
		AND kcu.column_name = c.column_name
	LEFT JOIN information_schema.table_constraints tc
		ON tc.constraint_name = kcu.constraint_name
		AND tc.constraint_type = 'FOREIGN KEY'
	LEFT JOIN information_schema.constraint_column_usage ccu
		ON ccu.constraint_name = tc.constraint_name
	WHERE c.table_schema = 'public' AND c.table_name = ?
	ORDER BY c.ordinal_position`

// Synthesize builds the TableModel for table from the live catalog.
func (s *Synthesizer) Synthesize(table string) (*TableModel, error) {
	if !ValidIdentifier(table) {
		return nil, domain.Invalidf("invalid table name %q", table)
	}
	var rows []introspectedColumn
	if err := s.db.Raw(introspectQuery, table).Scan(&rows).Error; err != nil {
		return nil, domain.Upstreamf(err, "introspect table %q", table)
	}
	if len(rows) == 0 {
		return nil, domain.NotFoundf("table %q has no columns or does not exist", table)
	}
	model := &TableModel{Table: table, Fields: make([]FieldDescriptor, 0, len(rows))}
	for _, row := range rows {
		field := FieldDescriptor{
			Column:     row.ColumnName,
			Native:     row.DataType,
			Logical:    LogicalFromNative(row.DataType),
			Nullable:   strings.EqualFold(row.IsNullable, "YES"),
			Constraint: row.ConstraintType,
		}
		if row.ForeignTableName != nil {
			field.ForeignTable = *row.ForeignTableName
		}
		if row.ForeignColumnName != nil {
			field.ForeignColumn = *row.ForeignColumnName
		}
		model.Fields = append(model.Fields, field)
	}
	return model, nil
}

// GetTableFields returns the introspection contract consumed by the
// admin UI to render forms for a dynamic table.
func (s *Synthesizer) GetTableFields(table string) ([]FieldDescriptor, error) {
	model, err := s.Synthesize(table)
	if err != nil {
		return nil, err
	}
	return model.Fields, nil
}
