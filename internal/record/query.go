package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// Business constants of the pi module: every pi_ row hangs off one
// characterization, and listings only surface rows whose
// characterization is in the active state.
const (
	characterizationTable = "inscription_caracterizacion"
	characterizationFK    = "caracterizacion_id"
	stateColumn           = "estado"
	activeStateCode       = 4

	localityColumn = "localidad"
	relatedRowCap  = 100
)

func quoteIdent(name string) string {
	return `"` + strings.TrimSpace(name) + `"`
}

// coerceFilter converts a query-string filter value to the column's
// logical type. Unlike the tolerant CSV path, an unparsable value here
// is a caller mistake and fails as invalid input instead of reaching
// the database as a type error.
func coerceFilter(logical schema.LogicalType, column, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch logical {
	case schema.TypeInteger, schema.TypeBigInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.Invalidf("filter %q expects an integer, got %q", column, raw)
		}
		return n, nil
	case schema.TypeDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, domain.Invalidf("filter %q expects a number, got %q", column, raw)
		}
		return f, nil
	case schema.TypeBoolean:
		switch strings.ToLower(raw) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return nil, domain.Invalidf("filter %q expects a boolean, got %q", column, raw)
		}
	default:
		return raw, nil
	}
}

// buildListQuery renders the SELECT for GetRecords: equality filters on
// live columns, the implicit pi_ characterization join, and the
// manager-role locality restriction. Unknown filter keys are dropped;
// known keys whose value does not parse for the column type fail.
func buildListQuery(model *schema.TableModel, module domain.Module, filters map[string]string, ident domain.Identity) (string, []any, error) {
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT t.* FROM %s t", quoteIdent(model.Table))

	joined := module == domain.ModulePi &&
		model.Table != characterizationTable &&
		model.HasColumn(characterizationFK)
	if joined {
		fmt.Fprintf(&b, " JOIN %s c ON c.%s = t.%s AND c.%s = ?",
			quoteIdent(characterizationTable), quoteIdent("id"),
			quoteIdent(characterizationFK), quoteIdent(stateColumn))
		args = append(args, activeStateCode)
	}

	var conds []string
	for _, f := range model.Fields {
		raw, ok := filters[f.Column]
		if !ok {
			continue
		}
		value, err := coerceFilter(f.Logical, f.Column, raw)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, fmt.Sprintf("t.%s = ?", quoteIdent(f.Column)))
		args = append(args, value)
	}
	if ident.Role == domain.RoleManager && ident.Localidad != "" && model.HasColumn(localityColumn) {
		conds = append(conds, fmt.Sprintf("t.%s = ?", quoteIdent(localityColumn)))
		args = append(args, ident.Localidad)
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY t.")
	b.WriteString(quoteIdent("id"))
	return b.String(), args, nil
}

// buildInsertSQL renders an INSERT returning the generated id. Columns
// follow model order so statements are deterministic.
func buildInsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "), quoteIdent("id"))
}
