package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/payment"
)

type fakeEventHandler struct {
	events []payment.Event
	err    error
}

func (f *fakeEventHandler) HandleEvent(_ context.Context, event payment.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func deliver(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.receive(e.NewContext(req, rec)))
	return rec
}

func TestReceiveAcksParsedEvent(t *testing.T) {
	svc := &fakeEventHandler{}
	h := &Handler{svc: svc, logger: zap.NewNop()}

	rec := deliver(t, h, `{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "evt_1", "metadata": {"orderId": "7", "paymentMethod": "bancontact"}}}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
	require.Len(t, svc.events, 1)
	assert.Equal(t, payment.EventCheckoutCompleted, svc.events[0].Type)
	assert.Equal(t, "7", svc.events[0].Data.Object.Metadata.OrderID)
}

func TestReceiveAcksEvenWhenProcessingFails(t *testing.T) {
	svc := &fakeEventHandler{err: errors.New("db down")}
	h := &Handler{svc: svc, logger: zap.NewNop()}

	rec := deliver(t, h, `{"type": "checkout.session.expired", "data": {"object": {"metadata": {"orderId": "7"}}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	svc := &fakeEventHandler{}
	h := &Handler{svc: svc, logger: zap.NewNop()}

	rec := deliver(t, h, `{"type": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.events)
}
