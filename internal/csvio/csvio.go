// Package csvio bridges dynamic tables and CSV: template generation,
// tolerant bulk import with per-column coercion, and full-table export.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// Bridge performs CSV operations over dynamic tables.
type Bridge struct {
	db    *gorm.DB
	synth *schema.Synthesizer
}

// NewBridge wires the CSV bridge.
func NewBridge(db *gorm.DB, synth *schema.Synthesizer) *Bridge {
	return &Bridge{db: db, synth: synth}
}

// WriteTemplate emits a CSV with the table's live header and one
// synthetic example row so admins can see the expected shape.
func (b *Bridge) WriteTemplate(table string, w io.Writer) error {
	model, err := b.synth.Synthesize(table)
	if err != nil {
		return err
	}
	return writeTemplate(model, w)
}

func writeTemplate(model *schema.TableModel, w io.Writer) error {
	columns := model.Columns()
	if len(columns) == 0 {
		return domain.NotFoundf("table %q has no columns", model.Table)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return domain.Upstreamf(err, "write template header for %q", model.Table)
	}
	example := make([]string, len(columns))
	for i, col := range columns {
		example[i] = placeholderFor(col)
	}
	if err := cw.Write(example); err != nil {
		return domain.Upstreamf(err, "write template row for %q", model.Table)
	}
	cw.Flush()
	return cw.Error()
}

// placeholderFor derives the synthetic example cell from a column name.
func placeholderFor(column string) string {
	return "ejemplo_" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(column), " ", "_"))
}

// coerceCell converts one CSV cell for a column's logical type.
// Blank numeric and boolean cells become nil; unparsable numbers also
// degrade to nil rather than aborting the import.
func coerceCell(logical schema.LogicalType, cell string) any {
	cell = strings.TrimSpace(cell)
	switch logical {
	case schema.TypeInteger, schema.TypeBigInt:
		if cell == "" {
			return nil
		}
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case schema.TypeDecimal:
		if cell == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil
		}
		return f
	case schema.TypeBoolean:
		if cell == "" {
			return nil
		}
		return cell == "true" || cell == "1"
	case schema.TypeDate:
		if cell == "" {
			return nil
		}
		return cell
	default:
		return cell
	}
}

// rowsFromCSV maps parsed CSV records onto the table model: headers
// that name no live column are dropped, the id header is stripped so
// the database generates keys, and every cell is coerced by type.
func rowsFromCSV(model *schema.TableModel, header []string, records [][]string) []domain.Record {
	type boundColumn struct {
		index int
		field schema.FieldDescriptor
	}
	var bound []boundColumn
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || name == "id" {
			continue
		}
		field, ok := model.Field(name)
		if !ok {
			continue
		}
		bound = append(bound, boundColumn{index: i, field: field})
	}
	rows := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		row := make(domain.Record, len(bound))
		for _, bc := range bound {
			cell := ""
			if bc.index < len(rec) {
				cell = rec[bc.index]
			}
			row[bc.field.Column] = coerceCell(bc.field.Logical, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

// Upload bulk-loads a CSV stream into a table. All rows are inserted in
// one batch; any failure aborts the whole load.
func (b *Bridge) Upload(table string, r io.Reader) (int, error) {
	if !b.db.Migrator().HasTable(table) {
		return 0, domain.NotFoundf("table %q does not exist", table)
	}
	model, err := b.synth.Synthesize(table)
	if err != nil {
		return 0, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return 0, domain.Invalidf("csv for %q has no header row", table)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return 0, domain.Invalidf("malformed csv for %q: %v", table, err)
	}
	rows := rowsFromCSV(model, header, records)
	if len(rows) == 0 {
		return 0, nil
	}
	batch := make([]map[string]any, len(rows))
	for i, row := range rows {
		batch[i] = row
	}
	if err := b.db.Table(table).Create(&batch).Error; err != nil {
		return 0, domain.Upstreamf(err, "bulk insert into %q", table)
	}
	return len(rows), nil
}

// Export dumps every row of the table as CSV in live column order.
func (b *Bridge) Export(table string, w io.Writer) error {
	model, err := b.synth.Synthesize(table)
	if err != nil {
		return err
	}
	columns := model.Columns()
	if len(columns) == 0 {
		return domain.NotFoundf("table %q has no columns", table)
	}
	var rows []domain.Record
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quotedTable(table), `"id"`)
	if err := b.db.Raw(q).Scan(&rows).Error; err != nil {
		return domain.Upstreamf(err, "export rows of %q", table)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return domain.Upstreamf(err, "write export header for %q", table)
	}
	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = cellString(row[col])
		}
		if err := cw.Write(line); err != nil {
			return domain.Upstreamf(err, "write export row for %q", table)
		}
	}
	cw.Flush()
	return cw.Error()
}

func quotedTable(table string) string {
	return `"` + strings.TrimSpace(table) + `"`
}

// cellString renders a stored value back into a CSV cell such that a
// re-import of the export reproduces the same rows.
func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
