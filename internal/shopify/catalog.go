package shopify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spector-app/bulkedit/internal/catalog"
	"github.com/spector-app/bulkedit/internal/domain"
)

var _ catalog.Service = (*Client)(nil)

const collectionsPageSize = 250

// toGID widens a bare numeric id to an Admin API global id. Ids that
// already carry the gid scheme pass through untouched.
func toGID(ref domain.ResourceRef) string {
	if strings.HasPrefix(ref.ID, "gid://") {
		return ref.ID
	}
	switch ref.Type {
	case domain.ResourceVariant:
		return "gid://shopify/ProductVariant/" + ref.ID
	default:
		return "gid://shopify/Product/" + ref.ID
	}
}

type variantNode struct {
	ID                string  `json:"id"`
	Price             *string `json:"price"`
	CompareAtPrice    *string `json:"compareAtPrice"`
	InventoryQuantity *int    `json:"inventoryQuantity"`
	Product           struct {
		ID string `json:"id"`
	} `json:"product"`
	InventoryItem struct {
		ID             string `json:"id"`
		InventoryLevel *struct {
			Location struct {
				ID string `json:"id"`
			} `json:"location"`
		} `json:"inventoryLevel"`
	} `json:"inventoryItem"`
}

type productNode struct {
	ID          string   `json:"id"`
	Tags        []string `json:"tags"`
	Collections struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
	} `json:"collections"`
}

// GetFields reads one field for a group of resources in a single nodes
// query. Resources absent from the response are simply missing from the
// result map; the caller decides how to report them.
func (c *Client) GetFields(ctx context.Context, field domain.Field, refs []domain.ResourceRef) (map[domain.ResourceRef]domain.FieldValue, error) {
	if len(refs) == 0 {
		return map[domain.ResourceRef]domain.FieldValue{}, nil
	}

	byGID := make(map[string]domain.ResourceRef, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		gid := toGID(ref)
		byGID[gid] = ref
		ids = append(ids, gid)
	}

	switch field {
	case domain.FieldPrice, domain.FieldCompareAtPrice, domain.FieldInventory:
		return c.readVariantFields(ctx, field, ids, byGID)
	case domain.FieldTags, domain.FieldCollections:
		return c.readProductFields(ctx, field, ids, byGID)
	default:
		return nil, fmt.Errorf("unsupported field %q", field)
	}
}

func (c *Client) readVariantFields(ctx context.Context, field domain.Field, ids []string, byGID map[string]domain.ResourceRef) (map[domain.ResourceRef]domain.FieldValue, error) {
	query := `
query variantFields($ids: [ID!]!) {
	nodes(ids: $ids) {
		... on ProductVariant {
			id
			price
			compareAtPrice
			inventoryQuantity
		}
	}
}`

	var data struct {
		Nodes []*variantNode `json:"nodes"`
	}
	if err := c.graphqlRequest(ctx, query, map[string]any{"ids": ids}, &data); err != nil {
		return nil, fmt.Errorf("failed to read variant fields: %w", err)
	}

	out := make(map[domain.ResourceRef]domain.FieldValue, len(ids))
	for _, node := range data.Nodes {
		if node == nil || node.ID == "" {
			continue
		}
		ref, ok := byGID[node.ID]
		if !ok {
			continue
		}
		value, err := variantFieldValue(field, node)
		if err != nil {
			return nil, err
		}
		out[ref] = value
	}
	return out, nil
}

func variantFieldValue(field domain.Field, node *variantNode) (domain.FieldValue, error) {
	switch field {
	case domain.FieldPrice:
		return parseMoney(node.Price)
	case domain.FieldCompareAtPrice:
		return parseMoney(node.CompareAtPrice)
	case domain.FieldInventory:
		if node.InventoryQuantity == nil {
			return domain.NewQuantity(0), nil
		}
		return domain.NewQuantity(*node.InventoryQuantity), nil
	default:
		return domain.FieldValue{}, fmt.Errorf("field %q is not a variant field", field)
	}
}

func parseMoney(raw *string) (domain.FieldValue, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return domain.AbsentMoney(), nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return domain.FieldValue{}, fmt.Errorf("failed to parse money value %q: %w", *raw, err)
	}
	return domain.NewMoney(amount), nil
}

func (c *Client) readProductFields(ctx context.Context, field domain.Field, ids []string, byGID map[string]domain.ResourceRef) (map[domain.ResourceRef]domain.FieldValue, error) {
	query := `
query productFields($ids: [ID!]!, $first: Int!) {
	nodes(ids: $ids) {
		... on Product {
			id
			tags
			collections(first: $first) {
				nodes { id }
			}
		}
	}
}`

	var data struct {
		Nodes []*productNode `json:"nodes"`
	}
	variables := map[string]any{"ids": ids, "first": collectionsPageSize}
	if err := c.graphqlRequest(ctx, query, variables, &data); err != nil {
		return nil, fmt.Errorf("failed to read product fields: %w", err)
	}

	out := make(map[domain.ResourceRef]domain.FieldValue, len(ids))
	for _, node := range data.Nodes {
		if node == nil || node.ID == "" {
			continue
		}
		ref, ok := byGID[node.ID]
		if !ok {
			continue
		}
		switch field {
		case domain.FieldTags:
			out[ref] = domain.NewList(node.Tags)
		case domain.FieldCollections:
			collections := make([]string, 0, len(node.Collections.Nodes))
			for _, c := range node.Collections.Nodes {
				collections = append(collections, c.ID)
			}
			out[ref] = domain.NewList(collections)
		}
	}
	return out, nil
}

// SetField writes the final value of one field. The value is absolute
// state, never a delta, so concurrent writers cannot compound each other's
// adjustments.
func (c *Client) SetField(ctx context.Context, ref domain.ResourceRef, field domain.Field, value domain.FieldValue) error {
	switch field {
	case domain.FieldPrice, domain.FieldCompareAtPrice:
		return c.setVariantPrice(ctx, ref, field, value)
	case domain.FieldInventory:
		return c.setInventory(ctx, ref, value)
	case domain.FieldTags:
		return c.setTags(ctx, ref, value)
	case domain.FieldCollections:
		return c.setCollections(ctx, ref, value)
	default:
		return fmt.Errorf("unsupported field %q", field)
	}
}

// lookupVariant resolves the parent product and inventory coordinates a
// variant mutation needs.
func (c *Client) lookupVariant(ctx context.Context, ref domain.ResourceRef) (*variantNode, error) {
	query := `
query variantContext($id: ID!) {
	node(id: $id) {
		... on ProductVariant {
			id
			product { id }
			inventoryItem {
				id
				inventoryLevel { location { id } }
			}
		}
	}
}`

	var data struct {
		Node *variantNode `json:"node"`
	}
	if err := c.graphqlRequest(ctx, query, map[string]any{"id": toGID(ref)}, &data); err != nil {
		return nil, fmt.Errorf("failed to look up variant %s: %w", ref.ID, err)
	}
	if data.Node == nil || data.Node.ID == "" {
		return nil, fmt.Errorf("variant %s not found", ref.ID)
	}
	return data.Node, nil
}

func (c *Client) setVariantPrice(ctx context.Context, ref domain.ResourceRef, field domain.Field, value domain.FieldValue) error {
	node, err := c.lookupVariant(ctx, ref)
	if err != nil {
		return err
	}

	variant := map[string]any{"id": node.ID}
	var rendered any
	if value.Amount != nil {
		rendered = value.Amount.StringFixed(2)
	}
	if field == domain.FieldPrice {
		variant["price"] = rendered
	} else {
		// A nil compareAtPrice clears the field.
		variant["compareAtPrice"] = rendered
	}

	query := `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
	productVariantsBulkUpdate(productId: $productId, variants: $variants) {
		productVariants { id }
		userErrors { field message }
	}
}`

	var data struct {
		ProductVariantsBulkUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	err = c.graphqlRequest(ctx, query, map[string]any{
		"productId": node.Product.ID,
		"variants":  []any{variant},
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("productVariantsBulkUpdate", data.ProductVariantsBulkUpdate.UserErrors)
}

func (c *Client) setInventory(ctx context.Context, ref domain.ResourceRef, value domain.FieldValue) error {
	if value.Quantity == nil {
		return fmt.Errorf("inventory value for %s is missing a quantity", ref.ID)
	}

	node, err := c.lookupVariant(ctx, ref)
	if err != nil {
		return err
	}
	if node.InventoryItem.InventoryLevel == nil {
		return fmt.Errorf("variant %s is not stocked at any location", ref.ID)
	}

	query := `
mutation inventorySetOnHandQuantities($input: InventorySetOnHandQuantitiesInput!) {
	inventorySetOnHandQuantities(input: $input) {
		userErrors { field message }
	}
}`

	var data struct {
		InventorySetOnHandQuantities struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventorySetOnHandQuantities"`
	}
	err = c.graphqlRequest(ctx, query, map[string]any{
		"input": map[string]any{
			"reason": "correction",
			"setQuantities": []any{map[string]any{
				"inventoryItemId": node.InventoryItem.ID,
				"locationId":      node.InventoryItem.InventoryLevel.Location.ID,
				"quantity":        *value.Quantity,
			}},
		},
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("inventorySetOnHandQuantities", data.InventorySetOnHandQuantities.UserErrors)
}

func (c *Client) setTags(ctx context.Context, ref domain.ResourceRef, value domain.FieldValue) error {
	query := `
mutation productUpdate($input: ProductInput!) {
	productUpdate(input: $input) {
		product { id }
		userErrors { field message }
	}
}`

	var data struct {
		ProductUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	err := c.graphqlRequest(ctx, query, map[string]any{
		"input": map[string]any{
			"id":   toGID(ref),
			"tags": value.List,
		},
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("productUpdate", data.ProductUpdate.UserErrors)
}

// setCollections diffs the product's current memberships against the
// desired list and issues one add or remove mutation per collection that
// changed.
func (c *Client) setCollections(ctx context.Context, ref domain.ResourceRef, value domain.FieldValue) error {
	current, err := c.GetFields(ctx, domain.FieldCollections, []domain.ResourceRef{ref})
	if err != nil {
		return err
	}
	currentValue, ok := current[ref]
	if !ok {
		return fmt.Errorf("product %s not found", ref.ID)
	}

	desired := make(map[string]bool, len(value.List))
	for _, id := range value.List {
		desired[id] = true
	}
	existing := make(map[string]bool, len(currentValue.List))
	for _, id := range currentValue.List {
		existing[id] = true
	}

	productGID := toGID(ref)
	for _, collectionID := range value.List {
		if existing[collectionID] {
			continue
		}
		if err := c.changeCollectionMembership(ctx, "collectionAddProducts", collectionID, productGID); err != nil {
			return err
		}
	}
	for _, collectionID := range currentValue.List {
		if desired[collectionID] {
			continue
		}
		if err := c.changeCollectionMembership(ctx, "collectionRemoveProducts", collectionID, productGID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) changeCollectionMembership(ctx context.Context, mutation, collectionID, productGID string) error {
	query := fmt.Sprintf(`
mutation %s($id: ID!, $productIds: [ID!]!) {
	%s(id: $id, productIds: $productIds) {
		userErrors { field message }
	}
}`, mutation, mutation)

	var data map[string]struct {
		UserErrors []userError `json:"userErrors"`
	}
	err := c.graphqlRequest(ctx, query, map[string]any{
		"id":         collectionID,
		"productIds": []string{productGID},
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError(mutation, data[mutation].UserErrors)
}
