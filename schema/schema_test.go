package schema

import (
	"errors"
	"testing"
)

type staticResolver struct {
	tables map[string]*Table
}

func (r staticResolver) SideTable(t DataType) (*Table, error) {
	if tbl, ok := r.tables[t.Name]; ok {
		return tbl, nil
	}
	return nil, errors.New("Data type not supported: " + t.Name)
}

func vectorSide() *Table {
	return NewTable("sqlq_vectors", NewDefinition(
		Col("id", UnsignedBigInt).Primary().AutoIncr(),
		Col("isNull", Bool).DefaultTo("false"),
		Col("x", Double).Null(),
	), nil)
}

func TestRegistryLookup(t *testing.T) {
	r := NewTypeRegistry()

	if dt, ok := r.Lookup("vector"); !ok || !dt.Compound {
		t.Errorf("Expected VECTOR to resolve as compound, got %+v (%v)", dt, ok)
	}
	if dt, ok := r.Lookup("varchar(32)"); !ok || dt.SQL != "VARCHAR(32)" {
		t.Errorf("Expected VARCHAR(32), got %+v (%v)", dt, ok)
	}
	if _, ok := r.Lookup("GEOMETRY"); ok {
		t.Errorf("Expected GEOMETRY to be unknown")
	}

	r.Register(DataType{Name: "COLOR", SQL: UnsignedBigInt.SQL, Compound: true})
	if len(r.Compound()) != 4 {
		t.Errorf("Expected 4 compound types, got %d", len(r.Compound()))
	}
}

func TestDefinitionHelpers(t *testing.T) {
	def := vectorSide().Definition()

	pk, ok := def.PrimaryKey()
	if !ok || pk.Name != "id" {
		t.Errorf("Expected primary key id, got %v (%v)", pk.Name, ok)
	}
	writable := def.Writable()
	if len(writable) != 2 || writable[0].Name != "isNull" {
		t.Errorf("Expected [isNull x], got %v", writable)
	}
	if _, ok := def.Column("y"); ok {
		t.Errorf("Expected column y to be missing")
	}
}

func TestCreateTableSQL(t *testing.T) {
	def := NewDefinition(
		Col("id", BigInt).Primary().AutoIncr(),
		Col("name", Varchar(16)).UniqueKey(),
		Col("pos", Vector).Null(),
	)
	resolver := staticResolver{tables: map[string]*Table{"VECTOR": vectorSide()}}

	got, err := CreateTableSQL("players", def, resolver)
	if err != nil {
		t.Fatalf("Failed to render DDL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `players` (`id` BIGINT NOT NULL AUTO_INCREMENT, " +
		"`name` VARCHAR(16) NOT NULL, `pos` BIGINT UNSIGNED, PRIMARY KEY (`id`), UNIQUE KEY (`name`), " +
		"FOREIGN KEY (`pos`) REFERENCES `sqlq_vectors` (`id`) ON DELETE CASCADE) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestCreateTableRejectsCompoundDefault(t *testing.T) {
	def := NewDefinition(Col("pos", Vector).DefaultTo("0"))
	resolver := staticResolver{tables: map[string]*Table{"VECTOR": vectorSide()}}

	if _, err := CreateTableSQL("bad", def, resolver); !errors.Is(err, ErrCompoundDefault) {
		t.Errorf("Expected ErrCompoundDefault, got %v", err)
	}
}

func TestCreateTemporaryTable(t *testing.T) {
	def := NewDefinition(Col("v", Int)).Temporary()
	got, err := CreateTableSQL("scratch", def, nil)
	if err != nil {
		t.Fatalf("Failed to render DDL: %v", err)
	}
	want := "CREATE TEMPORARY TABLE IF NOT EXISTS `scratch` (`v` INT NOT NULL) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if DropTableSQL("scratch", true) != "DROP TEMPORARY TABLE IF EXISTS `scratch`;" {
		t.Errorf("Unexpected drop statement: %s", DropTableSQL("scratch", true))
	}
}

func TestEmptyDefinition(t *testing.T) {
	if _, err := CreateTableSQL("empty", NewDefinition(), nil); !errors.Is(err, ErrNoColumns) {
		t.Errorf("Expected ErrNoColumns, got %v", err)
	}
}
