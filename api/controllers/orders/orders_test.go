package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/internal/authz"
	internalorders "github.com/angelmondragon/toolyard-backend/internal/orders"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/pagination"
)

type stubOrderService struct {
	createInput  *internalorders.CreateInput
	respondInput *internalorders.RespondInput
	archiveInput *internalorders.ArchiveInput
	deleted      bool
	listParams   *pagination.Params
	err          error
}

func (s *stubOrderService) Create(_ context.Context, input internalorders.CreateInput) (*internalorders.CreateResult, error) {
	s.createInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.CreateResult{Order: &models.ProcurementOrder{ID: uuid.New()}}, nil
}

func (s *stubOrderService) Get(_ context.Context, _ authz.Actor, orderID uuid.UUID) (*internalorders.OrderDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDetail{Order: &models.ProcurementOrder{ID: orderID}}, nil
}

func (s *stubOrderService) ListForSupplier(_ context.Context, _ authz.Actor, params pagination.Params) (*internalorders.SupplierOrderList, error) {
	s.listParams = &params
	return &internalorders.SupplierOrderList{}, s.err
}

func (s *stubOrderService) Respond(_ context.Context, input internalorders.RespondInput) (*internalorders.RespondResult, error) {
	s.respondInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.RespondResult{Action: input.Action, Changed: true}, nil
}

func (s *stubOrderService) Cancel(_ context.Context, input internalorders.ArchiveInput) (*models.ArchivedOrder, error) {
	s.archiveInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return &models.ArchivedOrder{OriginalOrderID: input.OrderID}, nil
}

func (s *stubOrderService) Delete(ctx context.Context, input internalorders.ArchiveInput) (*models.ArchivedOrder, error) {
	s.deleted = true
	return s.Cancel(ctx, input)
}

func adminActor() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func supplierActor() authz.Actor {
	id := uuid.New()
	return authz.Actor{UserID: uuid.New(), Role: enums.ActorRoleSupplier, SupplierID: &id}
}

func newRequest(method, target, body string, actor authz.Actor, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(middleware.WithActor(ctx, actor))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestAdminCreate(t *testing.T) {
	svc := &stubOrderService{}
	body := `{"paymentMethod":"slip","currency":"LKR","items":[{"productId":"` + uuid.NewString() + `","supplierId":"` + uuid.NewString() + `","quantity":3,"price":"125.50"}]}`

	rec := httptest.NewRecorder()
	AdminCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/admin/v1/admin-orders", body, adminActor(), nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.createInput == nil || svc.createInput.PaymentMethod != enums.PaymentMethodSlip {
		t.Fatalf("unexpected create input %+v", svc.createInput)
	}
	if got := svc.createInput.Items[0].Price.String(); got != "125.5" {
		t.Fatalf("unexpected price %s", got)
	}
}

func TestAdminCreateValidation(t *testing.T) {
	cases := map[string]string{
		"no items":       `{"paymentMethod":"slip","items":[]}`,
		"bad method":     `{"paymentMethod":"cash","items":[{"productId":"` + uuid.NewString() + `","supplierId":"` + uuid.NewString() + `","quantity":1,"price":"1"}]}`,
		"zero quantity":  `{"paymentMethod":"slip","items":[{"productId":"` + uuid.NewString() + `","supplierId":"` + uuid.NewString() + `","quantity":0,"price":"1"}]}`,
		"unknown fields": `{"paymentMethod":"slip","extra":true}`,
	}
	for name, body := range cases {
		svc := &stubOrderService{}
		rec := httptest.NewRecorder()
		AdminCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/", body, adminActor(), nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, rec.Code)
		}
		if svc.createInput != nil {
			t.Fatalf("%s: service should not be called", name)
		}
	}
}

func TestSupplierRespond(t *testing.T) {
	svc := &stubOrderService{}
	orderID := uuid.New()
	actor := supplierActor()

	rec := httptest.NewRecorder()
	SupplierRespond(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/", `{"action":"Decline"}`, actor, map[string]string{"orderId": orderID.String()}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.respondInput.Action != enums.SupplierActionDecline || svc.respondInput.OrderID != orderID {
		t.Fatalf("unexpected respond input %+v", svc.respondInput)
	}
	if svc.respondInput.Actor.SupplierID == nil || *svc.respondInput.Actor.SupplierID != *actor.SupplierID {
		t.Fatal("actor not forwarded")
	}
}

func TestSupplierRespondRejectsUnknownAction(t *testing.T) {
	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	SupplierRespond(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/", `{"action":"maybe"}`, supplierActor(), map[string]string{"orderId": uuid.NewString()}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.respondInput != nil {
		t.Fatal("service should not be called")
	}
}

func TestSupplierRespondForbidden(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeForbidden, "supplier has no items on this order")}
	rec := httptest.NewRecorder()
	SupplierRespond(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/", `{"action":"accept"}`, supplierActor(), map[string]string{"orderId": uuid.NewString()}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestSupplierConfirmAccepts(t *testing.T) {
	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	SupplierConfirm(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/", "", supplierActor(), map[string]string{"orderId": uuid.NewString()}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.respondInput.Action != enums.SupplierActionAccept {
		t.Fatalf("expected accept, got %s", svc.respondInput.Action)
	}
}

func TestAdminCancelAndDelete(t *testing.T) {
	orderID := uuid.New()

	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	AdminCancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/", `{"reason":"  supplier out of stock  "}`, adminActor(), map[string]string{"orderId": orderID.String()}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.deleted || svc.archiveInput.Reason != "supplier out of stock" {
		t.Fatalf("unexpected cancel input %+v", svc.archiveInput)
	}

	svc = &stubOrderService{}
	rec = httptest.NewRecorder()
	AdminDelete(svc, nil).ServeHTTP(rec, newRequest(http.MethodDelete, "/", "", adminActor(), map[string]string{"orderId": orderID.String()}))
	if rec.Code != http.StatusOK || !svc.deleted {
		t.Fatalf("expected delete, got %d deleted=%v", rec.Code, svc.deleted)
	}
}

func TestAdminCancelMissingOrder(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := httptest.NewRecorder()
	AdminCancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/", "", adminActor(), map[string]string{"orderId": uuid.NewString()}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestAdminDetailRejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	AdminDetail(&stubOrderService{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/", "", adminActor(), map[string]string{"orderId": "not-a-uuid"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSupplierListPassesPaging(t *testing.T) {
	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	SupplierList(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/supplier/admin-orders?limit=5&cursor=abc", "", supplierActor(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listParams.Limit != 5 || svc.listParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.listParams)
	}
}
