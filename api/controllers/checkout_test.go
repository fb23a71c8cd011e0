package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

type stubCheckout struct {
	input *customerorders.CheckoutInput
}

func (s *stubCheckout) Checkout(_ context.Context, input customerorders.CheckoutInput) (*customerorders.CheckoutResult, error) {
	s.input = &input
	return &customerorders.CheckoutResult{Order: &models.CustomerOrder{ID: uuid.New()}}, nil
}

func (s *stubCheckout) Get(context.Context, uuid.UUID) (*models.CustomerOrder, error) {
	return nil, nil
}

func withActor(req *http.Request, role enums.ActorRole) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), authz.Actor{UserID: uuid.New(), Role: role}))
}

func TestCheckout(t *testing.T) {
	svc := &stubCheckout{}
	body := `{"channel":"Pay_Later","items":[{"productId":"` + uuid.NewString() + `","name":"  Claw hammer ","quantity":2,"price":"1500"}]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), enums.ActorRoleCustomer)
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.input.Channel != enums.PaymentChannelPayLater {
		t.Fatalf("unexpected channel %s", svc.input.Channel)
	}
	if svc.input.Items[0].Name != "Claw hammer" {
		t.Fatalf("expected trimmed name, got %q", svc.input.Items[0].Name)
	}
}

func TestCheckoutRejectsUnknownChannel(t *testing.T) {
	svc := &stubCheckout{}
	body := `{"channel":"cash","items":[{"productId":"` + uuid.NewString() + `","name":"x","quantity":1,"price":"1"}]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), enums.ActorRoleCustomer)
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || svc.input != nil {
		t.Fatalf("expected 400 without service call, got %d", rec.Code)
	}
}

func TestCheckoutRequiresActor(t *testing.T) {
	rec := httptest.NewRecorder()
	Checkout(&stubCheckout{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
