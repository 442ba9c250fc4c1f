package compound

import (
	"fmt"

	"sqlq/result"
	"sqlq/schema"
)

// Location is a position in a named world with a facing.
type Location struct {
	World      string
	X, Y, Z    float64
	Yaw, Pitch float32
}

// LocationHandler stores Location values.
type LocationHandler struct {
	sideTable
	def *schema.Definition
}

func NewLocationHandler(tableName string) *LocationHandler {
	return &LocationHandler{
		sideTable: sideTable{name: tableName},
		def: sideDefinition(
			schema.Col("world", schema.Varchar(45)).Null(),
			schema.Col("x", schema.Double).Null(),
			schema.Col("y", schema.Double).Null(),
			schema.Col("z", schema.Double).Null(),
			schema.Col("yaw", schema.Float).Null(),
			schema.Col("pitch", schema.Float).Null(),
		),
	}
}

func (h *LocationHandler) Type() schema.DataType          { return schema.Location }
func (h *LocationHandler) Definition() *schema.Definition { return h.def }
func (h *LocationHandler) Columns() []string {
	return []string{IsNullColumn, "world", "x", "y", "z", "yaw", "pitch"}
}

func (h *LocationHandler) Decompose(v any) ([]Pair, error) {
	var loc Location
	switch t := v.(type) {
	case nil:
		return nullPairs(), nil
	case Location:
		loc = t
	case *Location:
		if t == nil {
			return nullPairs(), nil
		}
		loc = *t
	default:
		return nil, fmt.Errorf("%w: expected Location, got %T", ErrInvalidValue, v)
	}

	var world any
	if loc.World != "" {
		world = loc.World
	}
	return []Pair{
		{IsNullColumn, false},
		{"world", world},
		{"x", loc.X},
		{"y", loc.Y},
		{"z", loc.Z},
		{"yaw", loc.Yaw},
		{"pitch", loc.Pitch},
	}, nil
}

func (h *LocationHandler) Reconstruct(alias string, row *result.Rows) (any, error) {
	isNull, err := readNull(alias, row)
	if err != nil || isNull {
		return nil, err
	}

	var loc Location
	if loc.World, err = row.String(label(alias, "world")); err != nil {
		return nil, err
	}
	if loc.X, err = row.Float64(label(alias, "x")); err != nil {
		return nil, err
	}
	if loc.Y, err = row.Float64(label(alias, "y")); err != nil {
		return nil, err
	}
	if loc.Z, err = row.Float64(label(alias, "z")); err != nil {
		return nil, err
	}
	yaw, err := row.Float64(label(alias, "yaw"))
	if err != nil {
		return nil, err
	}
	pitch, err := row.Float64(label(alias, "pitch"))
	if err != nil {
		return nil, err
	}
	loc.Yaw, loc.Pitch = float32(yaw), float32(pitch)
	return loc, nil
}
