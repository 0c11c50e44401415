package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OperationFamily selects the operation variant and the catalog field it
// targets.
type OperationFamily string

const (
	OperationFamilyPrice          OperationFamily = "price"
	OperationFamilyCompareAtPrice OperationFamily = "compare_at_price"
	OperationFamilyInventory      OperationFamily = "inventory"
	OperationFamilyTags           OperationFamily = "tags"
	OperationFamilyCollections    OperationFamily = "collections"
)

// PriceAction enumerates the price and compare-at price operations. Remove is
// only valid for compare-at prices.
type PriceAction string

const (
	PriceActionSet      PriceAction = "set"
	PriceActionIncrease PriceAction = "increase"
	PriceActionDecrease PriceAction = "decrease"
	PriceActionRound    PriceAction = "round"
	PriceActionRemove   PriceAction = "remove"
)

// InventoryAction enumerates the inventory operations.
type InventoryAction string

const (
	InventoryActionSet      InventoryAction = "set"
	InventoryActionAdd      InventoryAction = "add"
	InventoryActionSubtract InventoryAction = "subtract"
)

// TagAction enumerates the tag operations.
type TagAction string

const (
	TagActionAdd     TagAction = "add"
	TagActionRemove  TagAction = "remove"
	TagActionReplace TagAction = "replace"
)

// CollectionAction enumerates the collection membership operations.
type CollectionAction string

const (
	CollectionActionAdd    CollectionAction = "add"
	CollectionActionRemove CollectionAction = "remove"
)

// PriceOperation configures a price or compare-at price edit. Value carries
// the target amount for set; Percent carries the delta for increase/decrease.
type PriceOperation struct {
	Action  PriceAction     `json:"action"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// InventoryOperation configures an inventory edit.
type InventoryOperation struct {
	Action InventoryAction `json:"action"`
	Value  int             `json:"value"`
}

// TagOperation configures a tag edit.
type TagOperation struct {
	Action TagAction `json:"action"`
	Tags   []string  `json:"tags"`
}

// CollectionOperation configures collection membership edits.
type CollectionOperation struct {
	Action        CollectionAction `json:"action"`
	CollectionIDs []string         `json:"collectionIds"`
}

// Operation is a tagged variant: exactly one per-family configuration is set,
// matching Family.
type Operation struct {
	Family      OperationFamily      `json:"family"`
	Price       *PriceOperation      `json:"price,omitempty"`
	Inventory   *InventoryOperation  `json:"inventory,omitempty"`
	Tags        *TagOperation        `json:"tags,omitempty"`
	Collections *CollectionOperation `json:"collections,omitempty"`
}

// TargetField returns the catalog field the operation edits.
func (op Operation) TargetField() Field {
	switch op.Family {
	case OperationFamilyPrice:
		return FieldPrice
	case OperationFamilyCompareAtPrice:
		return FieldCompareAtPrice
	case OperationFamilyInventory:
		return FieldInventory
	case OperationFamilyTags:
		return FieldTags
	case OperationFamilyCollections:
		return FieldCollections
	default:
		return ""
	}
}

// Validate checks the operation before any catalog call is made.
func (op Operation) Validate() error {
	switch op.Family {
	case OperationFamilyPrice, OperationFamilyCompareAtPrice:
		if op.Price == nil {
			return NewValidationError(string(op.Family), "missing price configuration")
		}
		return op.validatePrice()
	case OperationFamilyInventory:
		if op.Inventory == nil {
			return NewValidationError(string(op.Family), "missing inventory configuration")
		}
		switch op.Inventory.Action {
		case InventoryActionSet, InventoryActionAdd, InventoryActionSubtract:
			return nil
		default:
			return &UnsupportedOperationError{Family: op.Family, Action: string(op.Inventory.Action)}
		}
	case OperationFamilyTags:
		if op.Tags == nil {
			return NewValidationError(string(op.Family), "missing tag configuration")
		}
		switch op.Tags.Action {
		case TagActionAdd, TagActionRemove, TagActionReplace:
			return nil
		default:
			return &UnsupportedOperationError{Family: op.Family, Action: string(op.Tags.Action)}
		}
	case OperationFamilyCollections:
		if op.Collections == nil {
			return NewValidationError(string(op.Family), "missing collection configuration")
		}
		switch op.Collections.Action {
		case CollectionActionAdd, CollectionActionRemove:
			return nil
		default:
			return &UnsupportedOperationError{Family: op.Family, Action: string(op.Collections.Action)}
		}
	default:
		return &UnsupportedOperationError{Family: op.Family}
	}
}

func (op Operation) validatePrice() error {
	switch op.Price.Action {
	case PriceActionSet:
		if op.Price.Value.IsNegative() {
			return NewValidationError("value", "price cannot be negative")
		}
		return nil
	case PriceActionIncrease, PriceActionDecrease:
		if op.Price.Percent.IsNegative() {
			return NewValidationError("percent", "percentage cannot be negative")
		}
		return nil
	case PriceActionRound:
		return nil
	case PriceActionRemove:
		if op.Family != OperationFamilyCompareAtPrice {
			return &UnsupportedOperationError{Family: op.Family, Action: string(PriceActionRemove)}
		}
		return nil
	default:
		return &UnsupportedOperationError{Family: op.Family, Action: string(op.Price.Action)}
	}
}

// Resolve computes the new field value for one resource. It never touches the
// catalog; callers compare the result against current to detect no-ops.
func Resolve(op Operation, current FieldValue) (FieldValue, error) {
	if err := op.Validate(); err != nil {
		return FieldValue{}, err
	}
	switch op.Family {
	case OperationFamilyPrice, OperationFamilyCompareAtPrice:
		return resolvePrice(op.Family, *op.Price, current)
	case OperationFamilyInventory:
		return resolveInventory(*op.Inventory, current)
	case OperationFamilyTags:
		return resolveTags(*op.Tags, current), nil
	case OperationFamilyCollections:
		return resolveCollections(*op.Collections, current), nil
	default:
		return FieldValue{}, &UnsupportedOperationError{Family: op.Family}
	}
}

var oneHundred = decimal.NewFromInt(100)

func resolvePrice(family OperationFamily, op PriceOperation, current FieldValue) (FieldValue, error) {
	switch op.Action {
	case PriceActionSet:
		return NewMoney(op.Value), nil
	case PriceActionRemove:
		return AbsentMoney(), nil
	}

	if current.Amount == nil {
		// Percentage and rounding operations need a base; an unset
		// compare-at price stays unset.
		return AbsentMoney(), nil
	}

	switch op.Action {
	case PriceActionIncrease:
		factor := decimal.NewFromInt(1).Add(op.Percent.Div(oneHundred))
		return NewMoney(current.Amount.Mul(factor).Round(2)), nil
	case PriceActionDecrease:
		factor := decimal.NewFromInt(1).Sub(op.Percent.Div(oneHundred))
		return NewMoney(current.Amount.Mul(factor).Round(2)), nil
	case PriceActionRound:
		// Rounds to the nearest whole currency unit regardless of the
		// currency's subunit conventions.
		return NewMoney(current.Amount.Round(0)), nil
	default:
		return FieldValue{}, &UnsupportedOperationError{Family: family, Action: string(op.Action)}
	}
}

func resolveInventory(op InventoryOperation, current FieldValue) (FieldValue, error) {
	base := 0
	if current.Quantity != nil {
		base = *current.Quantity
	}
	switch op.Action {
	case InventoryActionSet:
		return NewQuantity(op.Value), nil
	case InventoryActionAdd:
		return NewQuantity(base + op.Value), nil
	case InventoryActionSubtract:
		return NewQuantity(base - op.Value), nil
	default:
		return FieldValue{}, &UnsupportedOperationError{Family: OperationFamilyInventory, Action: string(op.Action)}
	}
}

func resolveTags(op TagOperation, current FieldValue) FieldValue {
	incoming := trimTags(op.Tags)
	switch op.Action {
	case TagActionReplace:
		return NewList(incoming)
	case TagActionAdd:
		merged := make([]string, 0, len(current.List)+len(incoming))
		seen := make(map[string]struct{}, len(current.List)+len(incoming))
		for _, tag := range current.List {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
		for _, tag := range incoming {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
		return NewList(merged)
	case TagActionRemove:
		removed := make(map[string]struct{}, len(incoming))
		for _, tag := range incoming {
			removed[tag] = struct{}{}
		}
		kept := make([]string, 0, len(current.List))
		for _, tag := range current.List {
			if _, ok := removed[tag]; ok {
				continue
			}
			kept = append(kept, tag)
		}
		return NewList(kept)
	default:
		return current.Clone()
	}
}

func resolveCollections(op CollectionOperation, current FieldValue) FieldValue {
	switch op.Action {
	case CollectionActionAdd:
		merged := make([]string, 0, len(current.List)+len(op.CollectionIDs))
		seen := make(map[string]struct{}, len(current.List)+len(op.CollectionIDs))
		for _, id := range current.List {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
		for _, id := range op.CollectionIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
		return NewList(merged)
	case CollectionActionRemove:
		removed := make(map[string]struct{}, len(op.CollectionIDs))
		for _, id := range op.CollectionIDs {
			removed[id] = struct{}{}
		}
		kept := make([]string, 0, len(current.List))
		for _, id := range current.List {
			if _, ok := removed[id]; ok {
				continue
			}
			kept = append(kept, id)
		}
		return NewList(kept)
	default:
		return current.Clone()
	}
}

func trimTags(tags []string) []string {
	trimmed := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		trimmed = append(trimmed, tag)
	}
	return trimmed
}
