package schema

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// ColumnSpec is one declared column of a dynamic table.
type ColumnSpec struct {
	Name          string      `json:"name"`
	Type          LogicalType `json:"type"`
	Nullable      bool        `json:"nullable"`
	RelatedTable  string      `json:"relatedTable,omitempty"`
	RelatedColumn string      `json:"relatedColumn,omitempty"`
}

// TableSummary is one entry of a module listing.
type TableSummary struct {
	TableName string `json:"table_name"`
	IsPrimary bool   `json:"is_primary"`
}

// Definer creates, alters and deletes dynamic tables. Alters are
// add/drop only; redefining a column in place is unsupported. Each
// operation runs check plus DDL inside a single transaction so a
// concurrent insert cannot slip between the pre-flight read and the drop.
type Definer struct {
	db      *gorm.DB
	catalog *Catalog
}

// NewDefiner wires the definition service.
func NewDefiner(db *gorm.DB, catalog *Catalog) *Definer {
	return &Definer{db: db, catalog: catalog}
}

func validateColumn(col ColumnSpec) error {
	if strings.TrimSpace(col.Name) == "" {
		return domain.Invalidf("column name is required")
	}
	if !ValidIdentifier(col.Name) {
		return domain.Invalidf("invalid column name %q", col.Name)
	}
	if strings.EqualFold(strings.TrimSpace(col.Name), "id") {
		return domain.Invalidf("column %q is reserved", col.Name)
	}
	if !IsKnownLogical(col.Type) {
		return domain.Invalidf("unknown column type %q for column %q", string(col.Type), col.Name)
	}
	if isForeignKey(col.Type) {
		if strings.TrimSpace(col.RelatedTable) == "" {
			return domain.Invalidf("column %q is a foreign key but names no related table", col.Name)
		}
		if !ValidIdentifier(col.RelatedTable) {
			return domain.Invalidf("invalid related table %q for column %q", col.RelatedTable, col.Name)
		}
		if col.RelatedColumn != "" && !ValidIdentifier(col.RelatedColumn) {
			return domain.Invalidf("invalid related column %q for column %q", col.RelatedColumn, col.Name)
		}
	}
	return nil
}

func isForeignKey(t LogicalType) bool {
	return strings.EqualFold(strings.TrimSpace(string(t)), string(TypeForeignKey))
}

// columnDDL renders one column clause of a CREATE/ALTER statement.
func columnDDL(col ColumnSpec) (string, error) {
	native, err := NativeType(col.Type)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(quoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(native)
	if !col.Nullable && !isForeignKey(col.Type) {
		b.WriteString(" NOT NULL")
	}
	if isForeignKey(col.Type) {
		related := col.RelatedColumn
		if related == "" {
			related = "id"
		}
		// Delete-set-null keeps orphaned rows instead of cascading
		// destruction across modules.
		fmt.Fprintf(&b, " REFERENCES %s(%s) ON UPDATE CASCADE ON DELETE SET NULL",
			quoteIdent(col.RelatedTable), quoteIdent(related))
	}
	return b.String(), nil
}

// createTableSQL renders the full CREATE TABLE statement. Every dynamic
// table gets an auto-incrementing integer id primary key.
func createTableSQL(table string, columns []ColumnSpec) (string, error) {
	clauses := make([]string, 0, len(columns)+1)
	clauses = append(clauses, `"id" serial PRIMARY KEY`)
	for _, col := range columns {
		ddl, err := columnDDL(col)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, ddl)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(clauses, ", ")), nil
}

// CreateTable validates the definition, creates the native table and
// registers the catalog row. The table is immediately introspectable.
func (d *Definer) CreateTable(table string, columns []ColumnSpec) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if len(columns) == 0 {
		return domain.Invalidf("table %q declares no columns", table)
	}
	for _, col := range columns {
		if err := validateColumn(col); err != nil {
			return err
		}
	}
	module, _ := domain.ModuleOfTable(table)
	ddl, err := createTableSQL(table, columns)
	if err != nil {
		return err
	}
	err = d.db.Transaction(func(tx *gorm.DB) error {
		if tx.Migrator().HasTable(table) {
			return domain.Conflictf("table %q already exists", table)
		}
		if err := tx.Exec(ddl).Error; err != nil {
			return domain.Upstreamf(err, "create table %q", table)
		}
		return d.catalog.register(tx, table, module, columns)
	})
	return err
}

// AlterTable adds and drops columns. Adds follow creation validation
// and are refused when the name already exists on the table, since that
// would amount to redefining a column in place. Drops are refused while
// the column holds data or participates in a foreign-key constraint.
// Partial failures roll the whole alter back.
func (d *Definer) AlterTable(table string, add []ColumnSpec, drop []string) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if len(add) == 0 && len(drop) == 0 {
		return domain.Invalidf("alter of %q changes nothing", table)
	}
	seen := make(map[string]bool, len(add))
	for _, col := range add {
		if err := validateColumn(col); err != nil {
			return err
		}
		name := strings.TrimSpace(col.Name)
		if seen[name] {
			return domain.Invalidf("column %q appears twice in the add list; editing existing columns is not allowed", col.Name)
		}
		seen[name] = true
	}
	for _, name := range drop {
		if !ValidIdentifier(name) {
			return domain.Invalidf("invalid column name %q", name)
		}
		if strings.EqualFold(strings.TrimSpace(name), "id") {
			return domain.Conflictf("the id column cannot be dropped")
		}
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		if !tx.Migrator().HasTable(table) {
			return domain.NotFoundf("table %q does not exist", table)
		}
		for _, col := range add {
			if tx.Migrator().HasColumn(table, strings.TrimSpace(col.Name)) {
				return domain.Invalidf("column %q already exists on %q; editing existing columns is not allowed", col.Name, table)
			}
			ddl, err := columnDDL(col)
			if err != nil {
				return err
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), ddl)
			if err := tx.Exec(stmt).Error; err != nil {
				return domain.Upstreamf(err, "add column %q to %q", col.Name, table)
			}
		}
		for _, name := range drop {
			if err := ensureColumnDroppable(tx, table, name); err != nil {
				return err
			}
			stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteIdent(table), quoteIdent(name))
			if err := tx.Exec(stmt).Error; err != nil {
				return domain.Upstreamf(err, "drop column %q from %q", name, table)
			}
		}
		return nil
	})
}

// ensureColumnDroppable runs the two drop pre-flight checks inside the
// surrounding transaction.
func ensureColumnDroppable(tx *gorm.DB, table, column string) error {
	var filled int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL", quoteIdent(table), quoteIdent(column))
	if err := tx.Raw(countSQL).Scan(&filled).Error; err != nil {
		return domain.Upstreamf(err, "inspect column %q of %q", column, table)
	}
	if filled > 0 {
		return domain.Conflictf("column %q of %q holds data and cannot be dropped", column, table)
	}
	var refs int64
	refSQL := `
		SELECT COUNT(*)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND ((kcu.table_name = ? AND kcu.column_name = ?)
				OR (ccu.table_name = ? AND ccu.column_name = ?))`
	if err := tx.Raw(refSQL, table, strings.TrimSpace(column), table, strings.TrimSpace(column)).Scan(&refs).Error; err != nil {
		return domain.Upstreamf(err, "inspect constraints on %q of %q", column, table)
	}
	if refs > 0 {
		return domain.Conflictf("column %q of %q participates in a foreign-key constraint", column, table)
	}
	return nil
}

// DeleteTable drops an empty dynamic table and its catalog row.
func (d *Definer) DeleteTable(table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		if !tx.Migrator().HasTable(table) {
			return domain.NotFoundf("table %q does not exist", table)
		}
		var count int64
		if err := tx.Table(table).Count(&count).Error; err != nil {
			return domain.Upstreamf(err, "count rows of %q", table)
		}
		if count > 0 {
			return domain.Conflictf("table %q holds %d rows and cannot be deleted", table, count)
		}
		if err := tx.Exec("DROP TABLE " + quoteIdent(table)).Error; err != nil {
			return domain.Upstreamf(err, "drop table %q", table)
		}
		return d.catalog.remove(tx, table)
	})
}

// ListTables lists the module's tables annotated with their primary flag.
// Tables without a catalog row default to non-primary.
func (d *Definer) ListTables(module domain.Module, primaryOnly bool) ([]TableSummary, error) {
	var names []string
	q := `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
			AND table_name LIKE ?
		ORDER BY table_name`
	if err := d.db.Raw(q, module.Prefix()+"%").Scan(&names).Error; err != nil {
		return nil, domain.Upstreamf(err, "list tables for module %q", module)
	}
	flags, err := d.catalog.primaryFlags(module)
	if err != nil {
		return nil, err
	}
	out := make([]TableSummary, 0, len(names))
	for _, name := range names {
		summary := TableSummary{TableName: name, IsPrimary: flags[name]}
		if primaryOnly && !summary.IsPrimary {
			continue
		}
		out = append(out, summary)
	}
	if len(out) == 0 {
		return nil, domain.NotFoundf("no tables for module %q", module)
	}
	return out, nil
}

// SetPrimary marks or unmarks a table as its module's primary table.
func (d *Definer) SetPrimary(table string, isPrimary bool) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	return d.catalog.SetPrimary(table, isPrimary)
}

// GetTableFields introspects the live columns of a table.
func (d *Definer) GetTableFields(table string) ([]FieldDescriptor, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	return NewSynthesizer(d.db).GetTableFields(table)
}
