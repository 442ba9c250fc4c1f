package compound

import (
	"fmt"

	"sqlq/result"
	"sqlq/schema"
)

// Vector is a point or direction in three dimensions.
type Vector struct {
	X, Y, Z float64
}

// VectorHandler stores Vector values.
type VectorHandler struct {
	sideTable
	def *schema.Definition
}

func NewVectorHandler(tableName string) *VectorHandler {
	return &VectorHandler{
		sideTable: sideTable{name: tableName},
		def: sideDefinition(
			schema.Col("x", schema.Double).Null(),
			schema.Col("y", schema.Double).Null(),
			schema.Col("z", schema.Double).Null(),
		),
	}
}

func (h *VectorHandler) Type() schema.DataType          { return schema.Vector }
func (h *VectorHandler) Definition() *schema.Definition { return h.def }
func (h *VectorHandler) Columns() []string {
	return []string{IsNullColumn, "x", "y", "z"}
}

func (h *VectorHandler) Decompose(v any) ([]Pair, error) {
	var vec Vector
	switch t := v.(type) {
	case nil:
		return nullPairs(), nil
	case Vector:
		vec = t
	case *Vector:
		if t == nil {
			return nullPairs(), nil
		}
		vec = *t
	default:
		return nil, fmt.Errorf("%w: expected Vector, got %T", ErrInvalidValue, v)
	}
	return []Pair{
		{IsNullColumn, false},
		{"x", vec.X},
		{"y", vec.Y},
		{"z", vec.Z},
	}, nil
}

func (h *VectorHandler) Reconstruct(alias string, row *result.Rows) (any, error) {
	isNull, err := readNull(alias, row)
	if err != nil || isNull {
		return nil, err
	}
	var vec Vector
	if vec.X, err = row.Float64(label(alias, "x")); err != nil {
		return nil, err
	}
	if vec.Y, err = row.Float64(label(alias, "y")); err != nil {
		return nil, err
	}
	if vec.Z, err = row.Float64(label(alias, "z")); err != nil {
		return nil, err
	}
	return vec, nil
}
