// Package record implements generic CRUD over dynamic tables. All
// operations work from the synthesized table model of the moment; no
// compile-time schema exists for any dynamic table.
package record

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/internal/history"
	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// Service is the generic record engine.
type Service struct {
	db    *gorm.DB
	synth *schema.Synthesizer
	hist  *history.Log
}

// NewService wires the record service.
func NewService(db *gorm.DB, synth *schema.Synthesizer, hist *history.Log) *Service {
	return &Service{db: db, synth: synth, hist: hist}
}

// resolve validates the table against the module allowlist and
// synthesizes its model.
func (s *Service) resolve(table string) (domain.Module, *schema.TableModel, error) {
	module, ok := domain.ModuleOfTable(table)
	if !ok {
		return "", nil, domain.Invalidf("table %q does not belong to any module", table)
	}
	model, err := s.synth.Synthesize(table)
	if err != nil {
		return "", nil, err
	}
	return module, model, nil
}

func (s *Service) fetchRow(tx *gorm.DB, table string, id int64) (domain.Record, bool, error) {
	var rows []domain.Record
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent("id"))
	if err := tx.Raw(q, id).Scan(&rows).Error; err != nil {
		return nil, false, domain.Upstreamf(err, "load record %d of %q", id, table)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// ensureReferencesExist confirms that every foreign-key value points at
// a live row in the related table.
func (s *Service) ensureReferencesExist(model *schema.TableModel, fields domain.Record) error {
	for _, f := range model.Fields {
		if !f.IsForeignKey() {
			continue
		}
		value, ok := fields[f.Column]
		if !ok || value == nil {
			continue
		}
		relColumn := f.ForeignColumn
		if relColumn == "" {
			relColumn = "id"
		}
		var count int64
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", quoteIdent(f.ForeignTable), quoteIdent(relColumn))
		if err := s.db.Raw(q, value).Scan(&count).Error; err != nil {
			return domain.Upstreamf(err, "check reference %q of %q", f.Column, model.Table)
		}
		if count == 0 {
			return domain.Conflictf("field %q references a missing row in %q", f.Column, f.ForeignTable)
		}
	}
	return nil
}

// insertRow inserts filtered fields and returns the generated id.
func insertRow(tx *gorm.DB, model *schema.TableModel, fields domain.Record) (int64, error) {
	columns := sortedColumns(model, fields)
	if len(columns) == 0 {
		return 0, domain.Invalidf("no valid fields for table %q", model.Table)
	}
	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = fields[col]
	}
	var id int64
	if err := tx.Raw(buildInsertSQL(model.Table, columns), values...).Scan(&id).Error; err != nil {
		return 0, domain.Upstreamf(err, "insert into %q", model.Table)
	}
	return id, nil
}

// AddRecord inserts one row into any module's table and returns the
// created record including its generated id.
func (s *Service) AddRecord(table string, fields domain.Record) (domain.Record, error) {
	_, model, err := s.resolve(table)
	if err != nil {
		return nil, err
	}
	filtered := filterToColumns(model, fields)
	if err := s.ensureReferencesExist(model, filtered); err != nil {
		return nil, err
	}
	id, err := insertRow(s.db, model, filtered)
	if err != nil {
		return nil, err
	}
	row, ok, err := s.fetchRow(s.db, table, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFoundf("record %d of %q vanished after insert", id, table)
	}
	normalizeBooleans(model, []domain.Record{row})
	return row, nil
}

// GetRecords lists rows matching the equality filters. Listings of pi_
// tables only include rows whose characterization is active; callers
// with the manager role and a locality only see their locality's rows.
func (s *Service) GetRecords(table string, filters map[string]string, ident domain.Identity) ([]domain.Record, error) {
	module, model, err := s.resolve(table)
	if err != nil {
		return nil, err
	}
	query, args, err := buildListQuery(model, module, filters, ident)
	if err != nil {
		return nil, err
	}
	var rows []domain.Record
	if err := s.db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, domain.Upstreamf(err, "list records of %q", table)
	}
	if rows == nil {
		rows = []domain.Record{}
	}
	normalizeBooleans(model, rows)
	return rows, nil
}

// RecordDetail is the enriched read shape of one record.
type RecordDetail struct {
	Record      domain.Record                    `json:"record"`
	RelatedData map[string][]domain.RelatedValue `json:"relatedData"`
}

// GetRecordByID loads one row and expands every foreign-key column into
// a human-readable related-record list.
func (s *Service) GetRecordByID(table string, id int64) (RecordDetail, error) {
	_, model, err := s.resolve(table)
	if err != nil {
		return RecordDetail{}, err
	}
	row, ok, err := s.fetchRow(s.db, table, id)
	if err != nil {
		return RecordDetail{}, err
	}
	if !ok {
		return RecordDetail{}, domain.NotFoundf("record %d of %q not found", id, table)
	}
	normalizeBooleans(model, []domain.Record{row})
	related, err := s.expandRelated(model)
	if err != nil {
		return RecordDetail{}, err
	}
	return RecordDetail{Record: row, RelatedData: related}, nil
}

// DeleteTableRecord removes one pi_ row.
func (s *Service) DeleteTableRecord(table string, id int64) error {
	module, ok := domain.ModuleOfTable(table)
	if !ok || module != domain.ModulePi {
		return domain.Invalidf("record deletion is limited to pi_ tables, got %q", table)
	}
	res := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent("id")), id)
	if res.Error != nil {
		return domain.Upstreamf(res.Error, "delete record %d of %q", id, table)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("record %d of %q not found", id, table)
	}
	return nil
}

// BulkUpdateRecords applies one updates map to every listed row in a
// single statement. The bulk path writes no history entries; the
// endpoint is rate limited instead.
func (s *Service) BulkUpdateRecords(table string, ids []int64, updates domain.Record) (int64, error) {
	_, model, err := s.resolve(table)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, domain.Invalidf("no record ids given for bulk update of %q", table)
	}
	filtered := filterToColumns(model, updates)
	if len(filtered) == 0 {
		return 0, domain.Invalidf("no valid fields for bulk update of %q", table)
	}
	res := s.db.Table(table).Where(quoteIdent("id")+" IN ?", ids).Updates(map[string]any(filtered))
	if res.Error != nil {
		return 0, domain.Upstreamf(res.Error, "bulk update %q", table)
	}
	return res.RowsAffected, nil
}
