package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spector-app/bulkedit/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		ShopDomain: server.URL,
		Token:      "test-token",
		APIVersion: "2024-07",
	}, server.Client())
}

func TestGraphqlRequestSendsAccessToken(t *testing.T) {
	var gotToken string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	})

	if err := client.graphqlRequest(context.Background(), "query { shop { id } }", nil, nil); err != nil {
		t.Fatalf("request returned error: %v", err)
	}
	if gotToken != "test-token" {
		t.Fatalf("expected access token header, got %q", gotToken)
	}
}

func TestGraphqlRequestRetriesThrottledErrors(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(map[string]any{
				"errors": []map[string]any{{
					"message":    "Throttled",
					"extensions": map[string]any{"code": "THROTTLED"},
				}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"ok": true}})
	})

	var out map[string]bool
	if err := client.graphqlRequest(context.Background(), "query { ok }", nil, &out); err != nil {
		t.Fatalf("request returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if !out["ok"] {
		t.Fatalf("expected decoded data after retry")
	}
}

func TestGraphqlRequestSurfacesGraphQLErrors(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "Field 'bogus' doesn't exist"}},
		})
	})

	err := client.graphqlRequest(context.Background(), "query { bogus }", nil, nil)
	if err == nil {
		t.Fatalf("expected error for graphql errors")
	}
}

func TestGetFieldsParsesVariantPrices(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"nodes": []map[string]any{
					{"id": "gid://shopify/ProductVariant/1", "price": "19.99", "compareAtPrice": nil},
					{"id": "gid://shopify/ProductVariant/2", "price": "5.00", "compareAtPrice": "7.50"},
				},
			},
		})
	})

	refs := []domain.ResourceRef{
		{ID: "1", Type: domain.ResourceVariant},
		{ID: "2", Type: domain.ResourceVariant},
	}
	values, err := client.GetFields(context.Background(), domain.FieldPrice, refs)
	if err != nil {
		t.Fatalf("GetFields returned error: %v", err)
	}
	if got := values[refs[0]].String(); got != "19.99" {
		t.Fatalf("expected 19.99, got %q", got)
	}
	if got := values[refs[1]].String(); got != "5" {
		t.Fatalf("expected 5, got %q", got)
	}
}

func TestGetFieldsTreatsMissingCompareAtAsAbsent(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"nodes": []map[string]any{
					{"id": "gid://shopify/ProductVariant/1", "price": "10.00", "compareAtPrice": nil},
				},
			},
		})
	})

	ref := domain.ResourceRef{ID: "1", Type: domain.ResourceVariant}
	values, err := client.GetFields(context.Background(), domain.FieldCompareAtPrice, []domain.ResourceRef{ref})
	if err != nil {
		t.Fatalf("GetFields returned error: %v", err)
	}
	value, ok := values[ref]
	if !ok {
		t.Fatalf("expected a value for the variant")
	}
	if !value.Equal(domain.AbsentMoney()) {
		t.Fatalf("expected absent money, got %+v", value)
	}
}
