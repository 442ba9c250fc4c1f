package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoColumns       = errors.New("table definition has no columns")
	ErrCompoundDefault = errors.New("compound columns cannot have a default value")
)

// CompoundResolver maps a compound type to its side table.
type CompoundResolver interface {
	SideTable(t DataType) (*Table, error)
}

// Quote wraps an identifier in backticks.
func Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CreateTableSQL renders the DDL for a table. Compound columns become
// references to the primary key of their side table.
func CreateTableSQL(name string, def *Definition, resolver CompoundResolver) (string, error) {
	if def == nil || len(def.columns) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNoColumns)
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if def.temporary {
		sb.WriteString("TEMPORARY ")
	}
	sb.WriteString("TABLE IF NOT EXISTS ")
	sb.WriteString(Quote(name))
	sb.WriteString(" (")

	var primary []string
	var uniques []string
	var foreign []string
	for i, c := range def.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Quote(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(c.Type.SQL)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if c.AutoIncrement {
			sb.WriteString(" AUTO_INCREMENT")
		}
		if c.Default != "" {
			if c.Type.Compound {
				return "", fmt.Errorf("%s.%s: %w", name, c.Name, ErrCompoundDefault)
			}
			sb.WriteString(" DEFAULT ")
			sb.WriteString(c.Default)
		}

		if c.PrimaryKey {
			primary = append(primary, Quote(c.Name))
		}
		if c.Unique {
			uniques = append(uniques, fmt.Sprintf("UNIQUE KEY (%s)", Quote(c.Name)))
		}
		if c.Type.Compound {
			if resolver == nil {
				return "", fmt.Errorf("no resolver for compound column %s.%s", name, c.Name)
			}
			side, err := resolver.SideTable(c.Type)
			if err != nil {
				return "", err
			}
			pk, ok := side.def.PrimaryKey()
			if !ok {
				return "", fmt.Errorf("side table %s has no primary key", side.name)
			}
			foreign = append(foreign, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE",
				Quote(c.Name), Quote(side.name), Quote(pk.Name)))
		}
	}

	if len(primary) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(strings.Join(primary, ", "))
		sb.WriteByte(')')
	}
	for _, u := range uniques {
		sb.WriteString(", ")
		sb.WriteString(u)
	}
	for _, f := range foreign {
		sb.WriteString(", ")
		sb.WriteString(f)
	}
	sb.WriteString(") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;")
	return sb.String(), nil
}

// DropTableSQL renders a DROP statement.
func DropTableSQL(name string, temporary bool) string {
	if temporary {
		return "DROP TEMPORARY TABLE IF EXISTS " + Quote(name) + ";"
	}
	return "DROP TABLE IF EXISTS " + Quote(name) + ";"
}
