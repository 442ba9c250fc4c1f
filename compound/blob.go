package compound

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"sqlq/result"
	"sqlq/schema"
)

// Codec serializes values stored by a BlobHandler.
type Codec interface {
	Encode(v any) (string, error)
	Decode(s string) (any, error)
}

// JSONCodec encodes values of type T as JSON.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v any) (string, error) {
	if _, ok := v.(T); !ok {
		var zero T
		return "", fmt.Errorf("%w: expected %T, got %T", ErrInvalidValue, zero, v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec[T]) Decode(s string) (any, error) {
	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ItemStack is a stack of items held in an inventory slot.
type ItemStack struct {
	Material string            `json:"material"`
	Amount   int               `json:"amount"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// BlobHandler stores any value as one serialized text column.
type BlobHandler struct {
	sideTable
	dataType schema.DataType
	codec    Codec
	def      *schema.Definition
}

func NewBlobHandler(dataType schema.DataType, tableName string, codec Codec) *BlobHandler {
	return &BlobHandler{
		sideTable: sideTable{name: tableName},
		dataType:  dataType,
		codec:     codec,
		def:       sideDefinition(schema.Col("serialized", schema.Text).Null()),
	}
}

// NewItemStackHandler stores []ItemStack as JSON.
func NewItemStackHandler(tableName string) *BlobHandler {
	return NewBlobHandler(schema.ItemStack, tableName, JSONCodec[[]ItemStack]{})
}

func (h *BlobHandler) Type() schema.DataType          { return h.dataType }
func (h *BlobHandler) Definition() *schema.Definition { return h.def }
func (h *BlobHandler) Columns() []string {
	return []string{IsNullColumn, "serialized"}
}

func (h *BlobHandler) Decompose(v any) ([]Pair, error) {
	if isNil(v) {
		return nullPairs(), nil
	}
	s, err := h.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s value: %w", h.dataType, err)
	}
	return []Pair{
		{IsNullColumn, false},
		{"serialized", s},
	}, nil
}

func (h *BlobHandler) Reconstruct(alias string, row *result.Rows) (any, error) {
	isNull, err := readNull(alias, row)
	if err != nil || isNull {
		return nil, err
	}
	s, err := row.String(label(alias, "serialized"))
	if err != nil {
		return nil, err
	}
	v, err := h.codec.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize %s value: %w", h.dataType, err)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
