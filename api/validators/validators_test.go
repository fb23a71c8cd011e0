package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
)

type lineRequest struct {
	Quantity int             `json:"quantity" validate:"required,min=1"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type orderRequest struct {
	Currency string        `json:"currency" validate:"omitempty,len=3"`
	Items    []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	d, _ := typed.Details().(map[string]string)
	return d
}

func TestDecodeJSONAccepts(t *testing.T) {
	var req orderRequest
	require.NoError(t, DecodeJSON(post(`{"currency":"usd","items":[{"quantity":2,"price":"19.99"}]}`), &req))
	assert.True(t, req.Items[0].Price.Equal(decimal.RequireFromString("19.99")))
}

func TestDecodeJSONFieldErrors(t *testing.T) {
	var req orderRequest
	err := DecodeJSON(post(`{"currency":"dollars","items":[{"quantity":0,"price":"-1"}]}`), &req)
	d := details(t, err)
	assert.Equal(t, "must be 3 characters", d["currency"])
	assert.Equal(t, "is required", d["items[0].quantity"])
	assert.Equal(t, "must be 0 or more", d["items[0].price"])
}

func TestDecodeJSONRejectsBadBodies(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"unknown":  `{"items":[{"quantity":1}],"coupon":"X"}`,
		"trailing": `{"items":[{"quantity":1}]}{"items":[]}`,
		"syntax":   `{"items":[`,
		"type":     `{"items":"many"}`,
		"too big":  `{"currency":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		var req orderRequest
		err := DecodeJSON(post(body), &req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: %v", name, err)
	}
}

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestPathUUID(t *testing.T) {
	r := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "5f0c6a4e-6c3b-4bde-9d0e-2b8c0a0b1e11")
	id, err := PathUUID(r, "orderId")
	require.NoError(t, err)
	assert.Equal(t, "5f0c6a4e-6c3b-4bde-9d0e-2b8c0a0b1e11", id.String())

	_, err = PathUUID(withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "42"), "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = PathUUID(httptest.NewRequest(http.MethodGet, "/", nil), "orderId")
	assert.Error(t, err)
}

func TestQueryParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?weeks=12&productId=nope", nil)
	n, err := QueryInt(r, "weeks", 10, 1, 104)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = QueryInt(r, "months", 12, 1, 24)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = QueryInt(r, "weeks", 10, 1, 8)
	assert.EqualError(t, err, "VALIDATION_ERROR: weeks must be between 1 and 8")

	_, err = QueryUUID(r, "productId")
	assert.Error(t, err)
	id, err := QueryUUID(r, "supplierId")
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Cordless drill", Clean("  Cordless drill \n", 0))
	assert.Equal(t, "Schraub", Clean("Schraubenzieher", 7))
	assert.Equal(t, "ñandú", Clean("ñandú rojo", 5))
}
