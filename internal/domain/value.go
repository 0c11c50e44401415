package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Field identifies an editable catalog field.
type Field string

const (
	FieldPrice          Field = "price"
	FieldCompareAtPrice Field = "compare_at_price"
	FieldInventory      Field = "inventory"
	FieldTags           Field = "tags"
	FieldCollections    Field = "collections"
)

// ResourceType distinguishes products from variants. The type tag travels
// alongside the id; resource ids are opaque and never parsed.
type ResourceType string

const (
	ResourceProduct ResourceType = "product"
	ResourceVariant ResourceType = "variant"
)

// ResourceRef addresses one resource in the external catalog.
type ResourceRef struct {
	ID   string       `json:"id"`
	Type ResourceType `json:"type"`
}

// ValueKind tags the representation carried by a FieldValue.
type ValueKind string

const (
	ValueKindMoney    ValueKind = "money"
	ValueKindQuantity ValueKind = "quantity"
	ValueKindList     ValueKind = "list"
)

// FieldValue is the typed value of an editable field. Money values with a
// nil amount represent an unset field (a removed compare-at price). A
// quantity of zero is a real value, never treated as absent.
type FieldValue struct {
	Kind     ValueKind        `json:"kind"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	List     []string         `json:"list,omitempty"`
}

// NewMoney creates a money value.
func NewMoney(amount decimal.Decimal) FieldValue {
	return FieldValue{Kind: ValueKindMoney, Amount: &amount}
}

// AbsentMoney creates an unset money value.
func AbsentMoney() FieldValue {
	return FieldValue{Kind: ValueKindMoney}
}

// NewQuantity creates an inventory quantity value.
func NewQuantity(quantity int) FieldValue {
	q := quantity
	return FieldValue{Kind: ValueKindQuantity, Quantity: &q}
}

// NewList creates a list value (tags or collection ids). The slice is copied
// so callers cannot mutate the stored value afterwards.
func NewList(items []string) FieldValue {
	copied := make([]string, len(items))
	copy(copied, items)
	return FieldValue{Kind: ValueKindList, List: copied}
}

// Equal reports whether two field values are identical. List comparison is
// order-sensitive; tag order is preserved through edits, so identical content
// in a different order counts as a change.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueKindMoney:
		if v.Amount == nil || other.Amount == nil {
			return v.Amount == nil && other.Amount == nil
		}
		return v.Amount.Equal(*other.Amount)
	case ValueKindQuantity:
		if v.Quantity == nil || other.Quantity == nil {
			return v.Quantity == nil && other.Quantity == nil
		}
		return *v.Quantity == *other.Quantity
	case ValueKindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the value.
func (v FieldValue) Clone() FieldValue {
	out := FieldValue{Kind: v.Kind}
	if v.Amount != nil {
		amount := *v.Amount
		out.Amount = &amount
	}
	if v.Quantity != nil {
		quantity := *v.Quantity
		out.Quantity = &quantity
	}
	if v.List != nil {
		out.List = make([]string, len(v.List))
		copy(out.List, v.List)
	}
	return out
}

// String renders the value for logs and reports.
func (v FieldValue) String() string {
	switch v.Kind {
	case ValueKindMoney:
		if v.Amount == nil {
			return ""
		}
		return v.Amount.String()
	case ValueKindQuantity:
		if v.Quantity == nil {
			return ""
		}
		return strconv.Itoa(*v.Quantity)
	case ValueKindList:
		return strings.Join(v.List, ", ")
	default:
		return ""
	}
}
