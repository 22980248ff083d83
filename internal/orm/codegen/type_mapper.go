// Package codegen generates the DDL that backs model definitions.
// It turns validated resource schemas into CREATE TABLE statements for the
// PostgreSQL and SQLite dialects the data layer supports.
package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// Dialect selects the SQL flavor of generated statements
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// String returns the dialect name
func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// TypeMapper maps field types to column types
type TypeMapper struct {
	dialect Dialect
}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper(dialect Dialect) *TypeMapper {
	return &TypeMapper{dialect: dialect}
}

// MapType converts a TypeSpec to a column type
func (tm *TypeMapper) MapType(typeSpec *schema.TypeSpec) (string, error) {
	if typeSpec == nil {
		return "", fmt.Errorf("type spec cannot be nil")
	}

	// Arrays are native on PostgreSQL and stored as JSON text on SQLite,
	// which is what the scanner reads back
	if typeSpec.ArrayElement != nil || typeSpec.BaseType == schema.TypeArray {
		if tm.dialect == DialectSQLite || typeSpec.ArrayElement == nil {
			return tm.jsonType(), nil
		}
		elementType, err := tm.MapType(typeSpec.ArrayElement)
		if err != nil {
			return "", fmt.Errorf("array element: %w", err)
		}
		return elementType + "[]", nil
	}

	if tm.dialect == DialectSQLite {
		return tm.mapSQLiteType(typeSpec)
	}
	return tm.mapPostgresType(typeSpec)
}

func (tm *TypeMapper) mapPostgresType(typeSpec *schema.TypeSpec) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeString:
		if typeSpec.Length != nil {
			return fmt.Sprintf("VARCHAR(%d)", *typeSpec.Length), nil
		}
		return "VARCHAR(255)", nil // Default length

	case schema.TypeText:
		return "TEXT", nil

	case schema.TypeInt:
		return "INTEGER", nil

	case schema.TypeBigInt:
		return "BIGINT", nil

	case schema.TypeFloat:
		return "DOUBLE PRECISION", nil

	case schema.TypeDecimal:
		return "NUMERIC", nil

	case schema.TypeBool:
		return "BOOLEAN", nil

	case schema.TypeTimestamp:
		return "TIMESTAMP WITH TIME ZONE", nil

	case schema.TypeDate:
		return "DATE", nil

	case schema.TypeUUID:
		return "UUID", nil

	case schema.TypeEmail, schema.TypeURL, schema.TypeEnum:
		// Validated types are stored as strings
		return "VARCHAR(255)", nil

	case schema.TypeJSON:
		return "JSONB", nil

	default:
		return "", fmt.Errorf("unsupported type: %s", typeSpec.BaseType)
	}
}

// mapSQLiteType uses declared types that go-sqlite3 converts back to the
// Go values the data layer expects
func (tm *TypeMapper) mapSQLiteType(typeSpec *schema.TypeSpec) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeString:
		if typeSpec.Length != nil {
			return fmt.Sprintf("VARCHAR(%d)", *typeSpec.Length), nil
		}
		return "TEXT", nil

	case schema.TypeText, schema.TypeEmail, schema.TypeURL, schema.TypeEnum, schema.TypeUUID:
		return "TEXT", nil

	case schema.TypeInt, schema.TypeBigInt:
		return "INTEGER", nil

	case schema.TypeFloat:
		return "REAL", nil

	case schema.TypeDecimal:
		return "NUMERIC", nil

	case schema.TypeBool:
		return "BOOLEAN", nil

	case schema.TypeTimestamp:
		return "TIMESTAMP", nil

	case schema.TypeDate:
		return "DATE", nil

	case schema.TypeJSON:
		return "TEXT", nil

	default:
		return "", fmt.Errorf("unsupported type: %s", typeSpec.BaseType)
	}
}

func (tm *TypeMapper) jsonType() string {
	if tm.dialect == DialectSQLite {
		return "TEXT"
	}
	return "JSONB"
}

// MapNullability returns the NULL/NOT NULL constraint for a type
func (tm *TypeMapper) MapNullability(typeSpec *schema.TypeSpec) string {
	if typeSpec.Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// MapAutoPrimaryKey returns the full column definition tail for a generated
// primary key, or false when the database cannot generate values of this type
func (tm *TypeMapper) MapAutoPrimaryKey(typeSpec *schema.TypeSpec) (string, bool) {
	switch {
	case typeSpec.IsInteger() && tm.dialect == DialectSQLite:
		// Only this exact spelling aliases the rowid
		return "INTEGER PRIMARY KEY AUTOINCREMENT", true
	case typeSpec.BaseType == schema.TypeInt:
		return "INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY", true
	case typeSpec.BaseType == schema.TypeBigInt:
		return "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY", true
	case typeSpec.BaseType == schema.TypeUUID && tm.dialect == DialectPostgres:
		return "UUID DEFAULT gen_random_uuid() PRIMARY KEY", true
	}
	return "", false
}

// QuoteIdentifier wraps a SQL identifier in double quotes and escapes internal quotes
func QuoteIdentifier(identifier string) string {
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

// quoteLiteral wraps a string in single quotes, doubling internal quotes
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
