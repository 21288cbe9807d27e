package record

import (
	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/internal/history"
	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// UpdateRecord is the free-form edit path, limited to the modules whose
// records staff may edit directly.
func (s *Service) UpdateRecord(table string, id int64, fields domain.Record, userID int64) (domain.Record, error) {
	module, model, err := s.resolve(table)
	if err != nil {
		return nil, err
	}
	if module != domain.ModuleProvider && module != domain.ModuleInscription {
		return nil, domain.Invalidf("free-form updates are limited to provider_ and inscription_ tables, got %q", table)
	}
	return s.updateWithHistory(model, id, fields, userID)
}

// UpdatePiRecord updates one pi_ row with per-field history.
func (s *Service) UpdatePiRecord(table string, id int64, fields domain.Record, userID int64) (domain.Record, error) {
	module, model, err := s.resolve(table)
	if err != nil {
		return nil, err
	}
	if module != domain.ModulePi {
		return nil, domain.Invalidf("expected a pi_ table, got %q", table)
	}
	return s.updateWithHistory(model, id, fields, userID)
}

// UpdateMasterRecord updates one master_ row with per-field history.
func (s *Service) UpdateMasterRecord(table string, id int64, fields domain.Record, userID int64) (domain.Record, error) {
	module, model, err := s.resolve(table)
	if err != nil {
		return nil, err
	}
	if module != domain.ModuleMaster {
		return nil, domain.Invalidf("expected a master_ table, got %q", table)
	}
	return s.updateWithHistory(model, id, fields, userID)
}

// updateWithHistory performs the diff-and-log update shared by every
// module: load the prior row, apply the valid fields, and append one
// update entry per column whose value actually changed. Mutation and
// audit entries commit in one transaction.
func (s *Service) updateWithHistory(model *schema.TableModel, id int64, fields domain.Record, userID int64) (domain.Record, error) {
	if userID == 0 {
		return nil, domain.MissingContextf("update of %q needs an acting user id", model.Table)
	}
	filtered := filterToColumns(model, fields)
	if len(filtered) == 0 {
		return nil, domain.Invalidf("no valid fields for update of %q", model.Table)
	}
	var updated domain.Record
	err := s.db.Transaction(func(tx *gorm.DB) error {
		prior, ok, err := s.fetchRow(tx, model.Table, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFoundf("record %d of %q not found", id, model.Table)
		}
		if err := tx.Table(model.Table).Where(quoteIdent("id")+" = ?", id).Updates(map[string]any(filtered)).Error; err != nil {
			return domain.Upstreamf(err, "update record %d of %q", id, model.Table)
		}
		changes := diffFields(prior, filtered, sortedColumns(model, filtered))
		for _, entry := range updateEntries(model.Table, id, userID, changes) {
			if err := s.hist.Append(tx, entry); err != nil {
				return err
			}
		}
		updated, ok, err = s.fetchRow(tx, model.Table, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFoundf("record %d of %q vanished during update", id, model.Table)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	normalizeBooleans(model, []domain.Record{updated})
	return updated, nil
}

// updateEntries builds exactly one update ledger entry per changed
// column, carrying the old and new values of the diff.
func updateEntries(table string, id, userID int64, changes []fieldChange) []history.Entry {
	entries := make([]history.Entry, 0, len(changes))
	for _, change := range changes {
		change := change
		entries = append(entries, history.Entry{
			Table:      table,
			RecordID:   id,
			UserID:     userID,
			ChangeType: domain.ChangeUpdate,
			FieldName:  &change.Column,
			OldValue:   change.OldValue,
			NewValue:   change.NewValue,
		})
	}
	return entries
}

// createEntries builds one create ledger entry per stored field, with
// null old values.
func createEntries(model *schema.TableModel, id, userID int64, fields domain.Record) []history.Entry {
	columns := sortedColumns(model, fields)
	entries := make([]history.Entry, 0, len(columns))
	for _, col := range columns {
		col := col
		entries = append(entries, history.Entry{
			Table:      model.Table,
			RecordID:   id,
			UserID:     userID,
			ChangeType: domain.ChangeCreate,
			FieldName:  &col,
			NewValue:   formatValue(fields[col]),
		})
	}
	return entries
}

// insertWithHistory inserts a row and appends its create entries.
func (s *Service) insertWithHistory(tx *gorm.DB, model *schema.TableModel, fields domain.Record, userID int64) (int64, error) {
	id, err := insertRow(tx, model, fields)
	if err != nil {
		return 0, err
	}
	for _, entry := range createEntries(model, id, userID, fields) {
		if err := s.hist.Append(tx, entry); err != nil {
			return 0, err
		}
	}
	return id, nil
}
