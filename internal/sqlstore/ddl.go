// Package sqlstore exports catalogs into SQL tables: a SQLite database file or
// a PostgreSQL table loaded with COPY.
package sqlstore

import (
	"fmt"
	"strings"

	"github.com/data-power-io/excavator-pins/internal/pins"
)

type dialect struct {
	text   string
	number string
}

var (
	sqliteDialect   = dialect{text: "TEXT", number: "REAL"}
	postgresDialect = dialect{text: "TEXT", number: "DOUBLE PRECISION"}
)

// indexes maps index suffixes to the indexed column
var indexes = []struct {
	name   string
	column string
}{
	{"manufacturer", pins.ColManufacturer},
	{"model", pins.ColModel},
	{"pin_diameter", pins.ColStickPinDiameterMM},
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableSQL(d dialect, table string, ifNotExists bool) string {
	defs := make([]string, len(pins.Columns))
	for i, col := range pins.Columns {
		typ := d.text
		if col.Kind == pins.KindNumber {
			typ = d.number
		}
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col.Name), typ)
	}

	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (\n\t%s\n)", clause, table, strings.Join(defs, ",\n\t"))
}

func quotedColumns() []string {
	names := make([]string, len(pins.Columns))
	for i, col := range pins.Columns {
		names[i] = quoteIdent(col.Name)
	}
	return names
}

// rowValues returns the cell values of a record in column order, nil for missing cells
func rowValues(p *pins.PinSpec) []interface{} {
	values := make([]interface{}, len(pins.Columns))
	for i, col := range pins.Columns {
		values[i] = col.Any(p)
	}
	return values
}
