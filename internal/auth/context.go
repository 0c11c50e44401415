package auth

import (
	"context"
	"fmt"
	"strings"
)

type contextKey string

const shopIDKey contextKey = "shopID"

// ContextWithShopID returns a new context that carries the authenticated shop scope.
func ContextWithShopID(ctx context.Context, shopID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, shopIDKey, shopID)
}

// ShopIDFromContext retrieves the authenticated shop scope from the context, if any.
func ShopIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value := ctx.Value(shopIDKey)
	if value == nil {
		return "", false
	}
	shopID, ok := value.(string)
	if !ok || strings.TrimSpace(shopID) == "" {
		return "", false
	}
	return shopID, true
}

// EnforceShopScope ensures the addressed shop matches the authenticated scope when present.
func EnforceShopScope(ctx context.Context, shopID string) error {
	if strings.TrimSpace(shopID) == "" {
		return fmt.Errorf("shop id is required")
	}
	scopedID, ok := ShopIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != shopID {
		return fmt.Errorf("shop %s does not match authenticated scope", shopID)
	}
	return nil
}
