package database

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

// sqliteLowerFunc is a Unicode-aware replacement for SQLite's LOWER, which
// only folds ASCII letters.
const sqliteLowerFunc = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLowerFunc, 1, unicodeLower); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", sqliteLowerFunc, err))
	}
}

// unicodeLower lowercases a TEXT or BLOB argument with strings.ToLower so
// that search folds case the same way for stored values and queries.
func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
