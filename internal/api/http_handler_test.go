package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spector-app/bulkedit/internal/domain"
	"github.com/spector-app/bulkedit/internal/executor"
)

type stubRunner struct {
	lastRequest executor.Request
	lastRevert  executor.RevertRequest
	result      executor.Result
	err         error
}

func (s *stubRunner) RunBatch(_ context.Context, req executor.Request) (executor.Result, error) {
	s.lastRequest = req
	return s.result, s.err
}

func (s *stubRunner) ApplyRevert(_ context.Context, req executor.RevertRequest) (executor.Result, error) {
	s.lastRevert = req
	return s.result, s.err
}

var _ BatchRunner = (*stubRunner)(nil)

type stubHistorySource struct {
	history domain.ShopSnapshotHistory
}

func (s *stubHistorySource) LoadHistory(_ context.Context, shopID string) (domain.ShopSnapshotHistory, error) {
	if s.history.ShopID == "" {
		return domain.NewShopSnapshotHistory(shopID), nil
	}
	return s.history, nil
}

var _ HistorySource = (*stubHistorySource)(nil)

type stubReports struct{}

func (stubReports) WriteCSV(_ context.Context, _ string, w io.Writer) error {
	_, err := io.WriteString(w, "generation\n")
	return err
}

func (stubReports) WriteXLSX(_ context.Context, _ string, w io.Writer) error {
	_, err := w.Write([]byte{0x50, 0x4b})
	return err
}

var _ ReportWriter = stubReports{}

func TestRunBatchRouteParsesStringAmounts(t *testing.T) {
	runner := &stubRunner{result: executor.Result{Applied: 1}}
	handler := NewHTTPHandler(runner, &stubHistorySource{}, stubReports{})

	body := `{
		"operationName": "raise prices",
		"operation": {"family": "price", "action": "increase", "percent": "12.5"},
		"resources": [{"id": "1", "type": "variant"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/shops/demo.myshopify.com/batches", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if runner.lastRequest.ShopID != "demo.myshopify.com" {
		t.Fatalf("shop id not taken from path: %q", runner.lastRequest.ShopID)
	}
	op := runner.lastRequest.Operation
	if op.Family != domain.OperationFamilyPrice || op.Price == nil {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if !op.Price.Percent.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected percent 12.5, got %s", op.Price.Percent)
	}
}

func TestRunBatchRouteRejectsMalformedAmount(t *testing.T) {
	runner := &stubRunner{}
	handler := NewHTTPHandler(runner, &stubHistorySource{}, stubReports{})

	body := `{
		"operation": {"family": "price", "action": "set", "value": "12,50"},
		"resources": [{"id": "1", "type": "variant"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/shops/demo.myshopify.com/batches", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if runner.lastRequest.ShopID != "" {
		t.Fatalf("malformed payload must not reach the runner")
	}
}

func TestRevertRouteParsesBatchID(t *testing.T) {
	runner := &stubRunner{result: executor.Result{Applied: 2}}
	handler := NewHTTPHandler(runner, &stubHistorySource{}, stubReports{})

	batchID := uuid.New()
	body := `{"batchId": "` + batchID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/shops/demo.myshopify.com/revert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if runner.lastRevert.BatchID != batchID {
		t.Fatalf("expected batch id %s, got %s", batchID, runner.lastRevert.BatchID)
	}
}

func TestRevertPlanRouteReportsEligibility(t *testing.T) {
	money := func(raw string) domain.FieldValue {
		return domain.NewMoney(decimal.RequireFromString(raw))
	}
	first := domain.NewEditBatch("demo.myshopify.com", "set", []domain.FieldChange{{
		ResourceID: "v1", ResourceType: domain.ResourceVariant, Field: domain.FieldPrice,
		OldValue: money("10"), NewValue: money("12"),
	}})
	second := domain.NewEditBatch("demo.myshopify.com", "set", []domain.FieldChange{{
		ResourceID: "v1", ResourceType: domain.ResourceVariant, Field: domain.FieldPrice,
		OldValue: money("12"), NewValue: money("14"),
	}})
	history := domain.NewShopSnapshotHistory("demo.myshopify.com").WithBatch(first).WithBatch(second)

	handler := NewHTTPHandler(&stubRunner{}, &stubHistorySource{history: history}, stubReports{})

	req := httptest.NewRequest(http.MethodGet, "/api/shops/demo.myshopify.com/revert-plan?batchId="+second.BatchID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		CanRevert    bool              `json:"canRevert"`
		Instructions []json.RawMessage `json:"instructions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !payload.CanRevert || len(payload.Instructions) != 1 {
		t.Fatalf("expected a revertible plan with one instruction, got %+v", payload)
	}

	stale := httptest.NewRequest(http.MethodGet, "/api/shops/demo.myshopify.com/revert-plan?batchId="+first.BatchID.String(), nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, stale)
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.CanRevert {
		t.Fatalf("demoted batch must not be revertible")
	}
}

func TestHistoryRouteListsGenerations(t *testing.T) {
	money := func(raw string) domain.FieldValue {
		return domain.NewMoney(decimal.RequireFromString(raw))
	}
	batch := domain.NewEditBatch("demo.myshopify.com", "set", []domain.FieldChange{{
		ResourceID: "v1", ResourceType: domain.ResourceVariant, Field: domain.FieldPrice,
		OldValue: money("10"), NewValue: money("12"),
	}})
	history := domain.NewShopSnapshotHistory("demo.myshopify.com").WithBatch(batch)

	handler := NewHTTPHandler(&stubRunner{}, &stubHistorySource{history: history}, stubReports{})

	req := httptest.NewRequest(http.MethodGet, "/api/shops/demo.myshopify.com/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		ShopID      string `json:"shopId"`
		Generations []struct {
			Generation string `json:"generation"`
			Changes    int    `json:"changes"`
		} `json:"generations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ShopID != "demo.myshopify.com" {
		t.Fatalf("unexpected shop id %q", payload.ShopID)
	}
	if len(payload.Generations) != 1 || payload.Generations[0].Generation != "current" {
		t.Fatalf("unexpected generations: %+v", payload.Generations)
	}
}

func TestCSVReportRouteSetsHeaders(t *testing.T) {
	handler := NewHTTPHandler(&stubRunner{}, &stubHistorySource{}, stubReports{})

	req := httptest.NewRequest(http.MethodGet, "/api/shops/demo.myshopify.com/report.csv", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	handler := NewHTTPHandler(&stubRunner{}, &stubHistorySource{}, stubReports{})

	req := httptest.NewRequest(http.MethodGet, "/api/shops/demo.myshopify.com/unknown", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
