package ledger

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, fx *ledgerFixture) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, fx.service, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestActiveOrdersResponseShape(t *testing.T) {
	fx := newLedgerFixture(t, splitOrders())
	router := newTestHandler(t, fx)

	req := httptest.NewRequest(http.MethodGet, "/active-orders?requisition_id=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	// The wire format is snake_case, not Go field names.
	require.Contains(t, body, `"orders"`)
	require.Contains(t, body, `"order_date"`)
	require.Contains(t, body, `"request_line_id"`)
	require.NotContains(t, body, `"OrderDate"`)
	require.Contains(t, body, `"OC-A"`)
}

func TestActiveOrdersRequiresRequisitionID(t *testing.T) {
	fx := newLedgerFixture(t, nil)
	router := newTestHandler(t, fx)

	req := httptest.NewRequest(http.MethodGet, "/active-orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
