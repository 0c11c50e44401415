// Package api exposes the bulk edit engine over HTTP. Routes are scoped
// per shop:
//
//	POST /api/shops/{shop}/batches
//	GET  /api/shops/{shop}/history
//	GET  /api/shops/{shop}/revert-plan?batchId=...
//	POST /api/shops/{shop}/revert
//	GET  /api/shops/{shop}/report.csv
//	GET  /api/shops/{shop}/report.xlsx
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spector-app/bulkedit/internal/auth"
	"github.com/spector-app/bulkedit/internal/domain"
	"github.com/spector-app/bulkedit/internal/executor"
	"github.com/spector-app/bulkedit/internal/revert"
)

// BatchRunner executes batches and reverts.
type BatchRunner interface {
	RunBatch(ctx context.Context, req executor.Request) (executor.Result, error)
	ApplyRevert(ctx context.Context, req executor.RevertRequest) (executor.Result, error)
}

// HistorySource loads the retained snapshot generations for a shop.
type HistorySource interface {
	LoadHistory(ctx context.Context, shopID string) (domain.ShopSnapshotHistory, error)
}

// ReportWriter renders edit history reports.
type ReportWriter interface {
	WriteCSV(ctx context.Context, shopID string, w io.Writer) error
	WriteXLSX(ctx context.Context, shopID string, w io.Writer) error
}

type Handler struct {
	runner    BatchRunner
	snapshots HistorySource
	reports   ReportWriter
}

func NewHTTPHandler(runner BatchRunner, snapshots HistorySource, reports ReportWriter) http.Handler {
	return &Handler{runner: runner, snapshots: snapshots, reports: reports}
}

const routePrefix = "/api/shops/"

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shopID, action, ok := splitShopRoute(r.URL.Path)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := auth.EnforceShopScope(r.Context(), shopID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	switch {
	case r.Method == http.MethodPost && action == "batches":
		h.handleRunBatch(w, r, shopID)
	case r.Method == http.MethodGet && action == "history":
		h.handleHistory(w, r, shopID)
	case r.Method == http.MethodGet && action == "revert-plan":
		h.handleRevertPlan(w, r, shopID)
	case r.Method == http.MethodPost && action == "revert":
		h.handleRevert(w, r, shopID)
	case r.Method == http.MethodGet && action == "report.csv":
		h.handleCSVReport(w, r, shopID)
	case r.Method == http.MethodGet && action == "report.xlsx":
		h.handleXLSXReport(w, r, shopID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// splitShopRoute extracts the shop id and trailing action from a path like
// /api/shops/demo.myshopify.com/batches.
func splitShopRoute(path string) (string, string, bool) {
	if !strings.HasPrefix(path, routePrefix) {
		return "", "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(path, routePrefix), "/")
	idx := strings.LastIndex(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

type operationPayload struct {
	Family        string   `json:"family"`
	Action        string   `json:"action"`
	Value         *string  `json:"value"`
	Percent       *string  `json:"percent"`
	Quantity      *int     `json:"quantity"`
	Tags          []string `json:"tags"`
	CollectionIDs []string `json:"collectionIds"`
}

type runBatchPayload struct {
	OperationName string             `json:"operationName"`
	Operation     operationPayload   `json:"operation"`
	Resources     []domain.ResourceRef `json:"resources"`
}

// toOperation maps the wire payload to a domain operation. Money amounts
// arrive as strings and are parsed exactly; float inputs are rejected at
// the JSON layer by the string type.
func toOperation(payload operationPayload) (domain.Operation, error) {
	family := domain.OperationFamily(strings.TrimSpace(payload.Family))
	op := domain.Operation{Family: family}

	switch family {
	case domain.OperationFamilyPrice, domain.OperationFamilyCompareAtPrice:
		price := &domain.PriceOperation{Action: domain.PriceAction(payload.Action)}
		if payload.Value != nil {
			value, err := decimal.NewFromString(strings.TrimSpace(*payload.Value))
			if err != nil {
				return domain.Operation{}, domain.NewValidationError("value", "invalid amount %q", *payload.Value)
			}
			price.Value = value
		}
		if payload.Percent != nil {
			percent, err := decimal.NewFromString(strings.TrimSpace(*payload.Percent))
			if err != nil {
				return domain.Operation{}, domain.NewValidationError("percent", "invalid percentage %q", *payload.Percent)
			}
			price.Percent = percent
		}
		op.Price = price
	case domain.OperationFamilyInventory:
		inventory := &domain.InventoryOperation{Action: domain.InventoryAction(payload.Action)}
		if payload.Quantity == nil {
			return domain.Operation{}, domain.NewValidationError("quantity", "quantity is required")
		}
		inventory.Value = *payload.Quantity
		op.Inventory = inventory
	case domain.OperationFamilyTags:
		op.Tags = &domain.TagOperation{Action: domain.TagAction(payload.Action), Tags: payload.Tags}
	case domain.OperationFamilyCollections:
		op.Collections = &domain.CollectionOperation{Action: domain.CollectionAction(payload.Action), CollectionIDs: payload.CollectionIDs}
	default:
		return domain.Operation{}, &domain.UnsupportedOperationError{Family: family, Action: payload.Action}
	}
	return op, nil
}

func (h *Handler) handleRunBatch(w http.ResponseWriter, r *http.Request, shopID string) {
	defer r.Body.Close()
	var payload runBatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	operation, err := toOperation(payload.Operation)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.runner.RunBatch(r.Context(), executor.Request{
		ShopID:        shopID,
		OperationName: payload.OperationName,
		Operation:     operation,
		Resources:     payload.Resources,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type generationPayload struct {
	Generation string `json:"generation"`
	BatchID    uuid.UUID `json:"batchId"`
	Operation  string `json:"operation"`
	CreatedAt  string `json:"createdAt"`
	Changes    int    `json:"changes"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, shopID string) {
	history, err := h.snapshots.LoadHistory(r.Context(), shopID)
	if err != nil {
		writeError(w, err)
		return
	}

	generations := make([]generationPayload, 0, 2)
	for _, generation := range []struct {
		name  string
		batch *domain.EditBatch
	}{
		{"current", history.Current},
		{"previous", history.Previous},
	} {
		if generation.batch == nil {
			continue
		}
		generations = append(generations, generationPayload{
			Generation: generation.name,
			BatchID:    generation.batch.BatchID,
			Operation:  generation.batch.OperationName,
			CreatedAt:  generation.batch.CreatedAt.Format(time.RFC3339),
			Changes:    len(generation.batch.ItemChanges),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shopId":      shopID,
		"generations": generations,
	})
}

func (h *Handler) handleRevertPlan(w http.ResponseWriter, r *http.Request, shopID string) {
	batchID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("batchId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid batchId: %v", err), http.StatusBadRequest)
		return
	}

	history, err := h.snapshots.LoadHistory(r.Context(), shopID)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, canRevert := revert.PlanRevert(history, batchID)
	writeJSON(w, http.StatusOK, map[string]any{
		"batchId":      batchID,
		"canRevert":    canRevert,
		"instructions": plan,
	})
}

type revertPayload struct {
	BatchID string `json:"batchId"`
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request, shopID string) {
	defer r.Body.Close()
	var payload revertPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	batchID, err := uuid.Parse(strings.TrimSpace(payload.BatchID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid batchId: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.runner.ApplyRevert(r.Context(), executor.RevertRequest{ShopID: shopID, BatchID: batchID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCSVReport(w http.ResponseWriter, r *http.Request, shopID string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shopID+"-changes.csv"))
	if err := h.reports.WriteCSV(r.Context(), shopID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) handleXLSXReport(w http.ResponseWriter, r *http.Request, shopID string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shopID+"-changes.xlsx"))
	if err := h.reports.WriteXLSX(r.Context(), shopID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps domain validation failures to 400 and everything else
// to 500.
func writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var unsupported *domain.UnsupportedOperationError
	switch {
	case errors.As(err, &validation), errors.As(err, &unsupported):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
