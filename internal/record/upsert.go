package record

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// Upsert keys of the pi module. Most pi_ tables hold one row per
// characterization; the exceptions either append (multi-valued history)
// or key on a wider natural key. Adding a table's rule is a data change.
var (
	piAlwaysInsert = map[string]bool{
		"pi_propuesta_mejora": true,
		"pi_ejecucion":        true,
		"pi_activos":          true,
	}
	piUpsertKeys = map[string][]string{
		"pi_encuesta_salida":  {characterizationFK, "componente", "pregunta"},
		"pi_formulacion":      {characterizationFK, "rel_proveedor"},
		"pi_formulacion_prov": {characterizationFK, "rel_proveedor"},
	}
)

// upsertKeyFor returns the natural-key columns for a pi_ table, or
// alwaysInsert when the table appends instead of upserting.
func upsertKeyFor(table string) (columns []string, alwaysInsert bool) {
	if piAlwaysInsert[table] {
		return nil, true
	}
	if key, ok := piUpsertKeys[table]; ok {
		return key, false
	}
	return []string{characterizationFK}, false
}

// CreateTableRecord is the pi module write path: insert or update keyed
// by the table's natural key, logging per-field history either way.
func (s *Service) CreateTableRecord(table string, fields domain.Record, userID int64) (domain.Record, error) {
	module, model, err := s.resolve(table)
	if err != nil {
		return nil, err
	}
	if module != domain.ModulePi {
		return nil, domain.Invalidf("expected a pi_ table, got %q", table)
	}
	if userID == 0 {
		return nil, domain.MissingContextf("write to %q needs an acting user id for history attribution", table)
	}
	filtered := filterToColumns(model, fields)
	if len(filtered) == 0 {
		return nil, domain.Invalidf("no valid fields for table %q", table)
	}

	keyColumns, alwaysInsert := upsertKeyFor(table)
	if alwaysInsert {
		return s.insertPiRow(model, filtered, userID)
	}

	existingID, found, err := s.findByNaturalKey(model, keyColumns, filtered)
	if err != nil {
		return nil, err
	}
	if found {
		return s.updateWithHistory(model, existingID, filtered, userID)
	}
	return s.insertPiRow(model, filtered, userID)
}

func (s *Service) insertPiRow(model *schema.TableModel, fields domain.Record, userID int64) (domain.Record, error) {
	var id int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = s.insertWithHistory(tx, model, fields, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	row, ok, err := s.fetchRow(s.db, model.Table, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFoundf("record %d of %q vanished after insert", id, model.Table)
	}
	normalizeBooleans(model, []domain.Record{row})
	return row, nil
}

// findByNaturalKey looks up the row matching the table's full natural
// key. Every key column must be supplied: matching on a subset would
// widen the key and update an arbitrary row of the characterization,
// which is exactly what the per-table key configuration guards against.
func (s *Service) findByNaturalKey(model *schema.TableModel, keyColumns []string, fields domain.Record) (int64, bool, error) {
	var (
		conds []string
		args  []any
	)
	for _, col := range keyColumns {
		value, ok := fields[col]
		if !ok {
			return 0, false, domain.Invalidf("table %q upserts by (%s); field %q is required", model.Table, strings.Join(keyColumns, ", "), col)
		}
		conds = append(conds, fmt.Sprintf("%s = ?", quoteIdent(col)))
		args = append(args, value)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1",
		quoteIdent("id"), quoteIdent(model.Table), strings.Join(conds, " AND "))
	var ids []int64
	if err := s.db.Raw(q, args...).Scan(&ids).Error; err != nil {
		return 0, false, domain.Upstreamf(err, "locate record of %q by natural key", model.Table)
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}
