package schema

import (
	"regexp"
	"strings"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// identifierPattern accepts the names admins may give to tables and
// columns. Spaces are tolerated because form labels double as column
// names; everything is always emitted double-quoted so case survives.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]*$`)

// ValidIdentifier reports whether name is safe to use as a quoted
// postgres identifier.
func ValidIdentifier(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= 63 && identifierPattern.MatchString(name)
}

// quoteIdent wraps an already-validated identifier in double quotes.
func quoteIdent(name string) string {
	return `"` + strings.TrimSpace(name) + `"`
}

// validateTableName checks prefix and identifier rules for a dynamic table.
func validateTableName(table string) error {
	table = strings.TrimSpace(table)
	if !ValidIdentifier(table) {
		return domain.Invalidf("invalid table name %q", table)
	}
	if _, ok := domain.ModuleOfTable(table); !ok {
		return domain.Invalidf("table name %q must start with a module prefix (inscription_, provider_, kit_, pi_, master_)", table)
	}
	return nil
}
