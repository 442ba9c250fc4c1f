package schema

import (
	"fmt"
	"strings"
	"sync"
)

// DataType describes how a column is stored. Compound types are not stored
// inline; the column holds a reference into a side table instead.
type DataType struct {
	Name     string
	SQL      string
	Compound bool
}

func (d DataType) String() string {
	return d.Name
}

// Built-in scalar types.
var (
	Bool           = DataType{Name: "BOOLEAN", SQL: "BOOLEAN"}
	TinyInt        = DataType{Name: "TINYINT", SQL: "TINYINT"}
	SmallInt       = DataType{Name: "SMALLINT", SQL: "SMALLINT"}
	Int            = DataType{Name: "INT", SQL: "INT"}
	BigInt         = DataType{Name: "BIGINT", SQL: "BIGINT"}
	UnsignedBigInt = DataType{Name: "BIGINT UNSIGNED", SQL: "BIGINT UNSIGNED"}
	Float          = DataType{Name: "FLOAT", SQL: "FLOAT"}
	Double         = DataType{Name: "DOUBLE", SQL: "DOUBLE"}
	Timestamp      = DataType{Name: "TIMESTAMP", SQL: "TIMESTAMP"}
	Date           = DataType{Name: "DATE", SQL: "DATE"}
	UUID           = DataType{Name: "UUID", SQL: "BINARY(16)"}
	Text           = DataType{Name: "TEXT", SQL: "TEXT"}
	Blob           = DataType{Name: "BLOB", SQL: "MEDIUMBLOB"}
)

// Built-in compound types.
var (
	Vector    = DataType{Name: "VECTOR", SQL: UnsignedBigInt.SQL, Compound: true}
	Location  = DataType{Name: "LOCATION", SQL: UnsignedBigInt.SQL, Compound: true}
	ItemStack = DataType{Name: "ITEM_STACK", SQL: UnsignedBigInt.SQL, Compound: true}
)

// Varchar returns a VARCHAR(n) type.
func Varchar(n int) DataType {
	sql := fmt.Sprintf("VARCHAR(%d)", n)
	return DataType{Name: sql, SQL: sql}
}

// TypeRegistry maps type names to data types. It is owned by a provider and
// passed explicitly to whatever needs to resolve names.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]DataType
}

// NewTypeRegistry returns a registry preloaded with the built-in types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]DataType)}
	for _, t := range []DataType{
		Bool, TinyInt, SmallInt, Int, BigInt, UnsignedBigInt, Float, Double,
		Timestamp, Date, UUID, Text, Blob, Vector, Location, ItemStack,
	} {
		r.types[strings.ToUpper(t.Name)] = t
	}
	return r
}

// Register adds or replaces a type.
func (r *TypeRegistry) Register(t DataType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[strings.ToUpper(t.Name)] = t
}

// Lookup resolves a type by name, case-insensitively. VARCHAR(n) is resolved
// on demand.
func (r *TypeRegistry) Lookup(name string) (DataType, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	r.mu.RLock()
	t, ok := r.types[key]
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	var n int
	if _, err := fmt.Sscanf(key, "VARCHAR(%d)", &n); err == nil && n > 0 {
		return Varchar(n), true
	}
	return DataType{}, false
}

// Compound lists every registered compound type.
func (r *TypeRegistry) Compound() []DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DataType
	for _, t := range r.types {
		if t.Compound {
			out = append(out, t)
		}
	}
	return out
}
