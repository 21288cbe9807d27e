package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// filterToColumns keeps only the fields that name live, non-id columns
// and carry non-nil values. Unknown keys are dropped silently.
func filterToColumns(model *schema.TableModel, fields domain.Record) domain.Record {
	out := make(domain.Record, len(fields))
	for name, value := range fields {
		if name == "id" || value == nil {
			continue
		}
		if model.HasColumn(name) {
			out[name] = value
		}
	}
	return out
}

// normalizeBooleans coerces boolean-typed columns to real booleans.
// Drivers and older dumps surface bits, ints and strings for them.
func normalizeBooleans(model *schema.TableModel, rows []domain.Record) {
	var boolCols []string
	for _, f := range model.Fields {
		if f.Logical == schema.TypeBoolean {
			boolCols = append(boolCols, f.Column)
		}
	}
	if len(boolCols) == 0 {
		return
	}
	for _, row := range rows {
		for _, col := range boolCols {
			value, ok := row[col]
			if !ok || value == nil {
				continue
			}
			row[col] = asBool(value)
		}
	}
}

func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case []byte:
		return asBoolString(string(v))
	case string:
		return asBoolString(v)
	default:
		return false
	}
}

func asBoolString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1":
		return true
	default:
		return false
	}
}

// formatValue renders a field value for history comparison and storage.
func formatValue(value any) *string {
	if value == nil {
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		s = v.UTC().Format(time.RFC3339)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}
	return &s
}

// fieldChange is one differing column between the stored row and an
// incoming update.
type fieldChange struct {
	Column   string
	OldValue *string
	NewValue *string
}

// diffFields compares incoming fields against the prior row as strings
// and returns one change per column whose value actually differs.
func diffFields(prior domain.Record, fields domain.Record, columns []string) []fieldChange {
	var changes []fieldChange
	for _, col := range columns {
		incoming, ok := fields[col]
		if !ok {
			continue
		}
		oldVal := formatValue(prior[col])
		newVal := formatValue(incoming)
		if stringOrEmpty(oldVal) == stringOrEmpty(newVal) {
			continue
		}
		changes = append(changes, fieldChange{Column: col, OldValue: oldVal, NewValue: newVal})
	}
	return changes
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// sortedColumns returns the field names of an update in model order so
// history entries are appended deterministically.
func sortedColumns(model *schema.TableModel, fields domain.Record) []string {
	out := make([]string, 0, len(fields))
	for _, col := range model.Columns() {
		if _, ok := fields[col]; ok {
			out = append(out, col)
		}
	}
	return out
}
