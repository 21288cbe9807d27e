package record

import (
	"fmt"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

const userTable = "users"

// expandRelated resolves every foreign-key column of model into a list
// of {id, displayValue} pairs from the related table. Lookups of the
// same related table within one call are served from a per-call cache.
func (s *Service) expandRelated(model *schema.TableModel) (map[string][]domain.RelatedValue, error) {
	related := make(map[string][]domain.RelatedValue)
	cache := make(map[string][]domain.RelatedValue)
	for _, f := range model.Fields {
		if !f.IsForeignKey() || f.ForeignTable == "" {
			continue
		}
		if cached, ok := cache[f.ForeignTable]; ok {
			related[f.Column] = cached
			continue
		}
		values, err := s.relatedValues(f.ForeignTable)
		if err != nil {
			return nil, err
		}
		cache[f.ForeignTable] = values
		related[f.Column] = values
	}
	return related, nil
}

// relatedValues lists up to relatedRowCap rows of a related table. The
// display value is the table's first non-id column, except the user
// table which always displays usernames.
func (s *Service) relatedValues(table string) ([]domain.RelatedValue, error) {
	display := ""
	if table == userTable {
		display = "username"
	} else {
		relModel, err := s.synth.Synthesize(table)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return []domain.RelatedValue{}, nil
			}
			return nil, err
		}
		display = relModel.FirstDisplayColumn()
	}
	q := fmt.Sprintf("SELECT %s AS id, %s AS display FROM %s ORDER BY %s LIMIT %d",
		quoteIdent("id"), quoteIdent(display), quoteIdent(table), quoteIdent("id"), relatedRowCap)
	var rows []struct {
		ID      int64
		Display *string
	}
	if err := s.db.Raw(q).Scan(&rows).Error; err != nil {
		return nil, domain.Upstreamf(err, "resolve related rows of %q", table)
	}
	values := make([]domain.RelatedValue, 0, len(rows))
	for _, row := range rows {
		value := domain.RelatedValue{ID: row.ID}
		if row.Display != nil {
			value.DisplayValue = *row.Display
		}
		values = append(values, value)
	}
	return values, nil
}
