package schema

import (
	"strings"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// LogicalType is the admin-facing column type vocabulary. Admins declare
// columns with these labels; native postgres types are an implementation
// detail mapped through NativeType / LogicalFromNative.
type LogicalType string

const (
	TypeString     LogicalType = "VARCHAR(255)"
	TypeText       LogicalType = "TEXT"
	TypeInteger    LogicalType = "INTEGER"
	TypeBigInt     LogicalType = "BIGINT"
	TypeDecimal    LogicalType = "DECIMAL"
	TypeBoolean    LogicalType = "BOOLEAN"
	TypeDate       LogicalType = "DATE"
	TypeForeignKey LogicalType = "FOREIGN KEY"
)

// nativeByLogical is the forward mapping used when building DDL.
// Foreign keys are stored as plain integers referencing the related
// table's primary key.
var nativeByLogical = map[LogicalType]string{
	TypeString:     "varchar(255)",
	TypeText:       "text",
	TypeInteger:    "integer",
	TypeBigInt:     "bigint",
	TypeDecimal:    "numeric(12,2)",
	TypeBoolean:    "boolean",
	TypeDate:       "date",
	TypeForeignKey: "integer",
}

// NativeType maps a logical type to its postgres column type.
func NativeType(logical LogicalType) (string, error) {
	native, ok := nativeByLogical[LogicalType(strings.ToUpper(strings.TrimSpace(string(logical))))]
	if !ok {
		return "", domain.Invalidf("unknown column type %q", string(logical))
	}
	return native, nil
}

// LogicalFromNative collapses an introspected native type back to a
// logical label. The mapping is intentionally lossy: several native
// variants fold into one logical type, which is all the system needs for
// input validation and CSV coercion. Unrecognized native types pass
// through uppercased as an opaque display label.
func LogicalFromNative(native string) LogicalType {
	n := strings.ToLower(strings.TrimSpace(native))
	switch {
	case n == "character varying", strings.HasPrefix(n, "varchar"), n == "character":
		return TypeString
	case n == "text":
		return TypeText
	case n == "integer", n == "int", n == "int4", n == "serial":
		return TypeInteger
	case n == "bigint", n == "int8", n == "bigserial":
		return TypeBigInt
	case n == "numeric", n == "decimal", strings.HasPrefix(n, "numeric"), n == "double precision", n == "real":
		return TypeDecimal
	case n == "boolean", n == "bool":
		return TypeBoolean
	case n == "date", strings.HasPrefix(n, "timestamp"):
		return TypeDate
	default:
		return LogicalType(strings.ToUpper(native))
	}
}

// IsKnownLogical reports whether logical is part of the declared vocabulary.
func IsKnownLogical(logical LogicalType) bool {
	_, ok := nativeByLogical[LogicalType(strings.ToUpper(strings.TrimSpace(string(logical))))]
	return ok
}
