package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
	"crocus/internal/services"
)

type mockAllocationService struct {
	upsertFn    func(transactionID string, allocations []services.AllocationInput) ([]models.Order, error)
	remainderFn func(bookingID string) (*services.BookingRemainder, error)
}

func (m *mockAllocationService) UpsertAllocations(transactionID string, allocations []services.AllocationInput) ([]models.Order, error) {
	if m.upsertFn != nil {
		return m.upsertFn(transactionID, allocations)
	}
	return []models.Order{}, nil
}

func (m *mockAllocationService) GetAllocations(string) ([]models.Order, error) {
	return []models.Order{}, nil
}

func (m *mockAllocationService) BookingRemainder(bookingID string) (*services.BookingRemainder, error) {
	if m.remainderFn != nil {
		return m.remainderFn(bookingID)
	}
	return &services.BookingRemainder{BookingID: bookingID}, nil
}

var _ services.AllocationServicer = (*mockAllocationService)(nil)

func setupAllocationRouter(handler *AllocationHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectActor(testActor))
	auth.PUT("/transactions/:id/allocations", handler.UpsertAllocations)
	auth.GET("/transactions/:id/allocations", handler.GetAllocations)
	auth.GET("/bookings/:id/remainder", handler.BookingRemainder)
	return r
}

func TestAllocationHandler_UpsertAllocations(t *testing.T) {
	t.Run("forwards every allocation", func(t *testing.T) {
		var got []services.AllocationInput
		svc := &mockAllocationService{
			upsertFn: func(id string, in []services.AllocationInput) ([]models.Order, error) {
				got = in
				orders := make([]models.Order, 0, len(in))
				for _, a := range in {
					orders = append(orders, models.Order{TransactionID: id, BookingID: a.BookingID, BaseAmount: a.BaseAmount})
				}
				return orders, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAllocationRouter(NewAllocationHandler(svc, audit))

		rec := doRequest(r, "PUT", "/transactions/tx-1/allocations",
			`{"allocations":[{"booking_id":"BK-1","base_amount":"300"},{"booking_id":"BK-2","base_amount":"200"}]}`)

		assertStatus(t, rec, http.StatusOK)
		if len(got) != 2 || got[1].BookingID != "BK-2" || !got[1].BaseAmount.Equal(decimal.NewFromInt(200)) {
			t.Errorf("unexpected allocations %+v", got)
		}
		orders := parseJSON(t, rec)["orders"].([]interface{})
		if len(orders) != 2 {
			t.Errorf("expected 2 orders, got %d", len(orders))
		}
		if len(audit.calls) != 1 || audit.calls[0].Action != services.AuditAllocations {
			t.Errorf("expected allocation audit entry, got %+v", audit.calls)
		}
	})

	t.Run("an empty list clears", func(t *testing.T) {
		called := false
		svc := &mockAllocationService{
			upsertFn: func(_ string, in []services.AllocationInput) ([]models.Order, error) {
				called = true
				if len(in) != 0 {
					t.Errorf("expected no allocations, got %d", len(in))
				}
				return []models.Order{}, nil
			},
		}
		r := setupAllocationRouter(NewAllocationHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/tx-1/allocations", `{"allocations":[]}`)

		assertStatus(t, rec, http.StatusOK)
		if !called {
			t.Error("expected the service to be called")
		}
	})

	t.Run("rejects an item without booking", func(t *testing.T) {
		r := setupAllocationRouter(NewAllocationHandler(&mockAllocationService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/tx-1/allocations", `{"allocations":[{"base_amount":"10"}]}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("maps unknown booking", func(t *testing.T) {
		svc := &mockAllocationService{
			upsertFn: func(string, []services.AllocationInput) ([]models.Order, error) {
				return nil, apperrors.ErrBookingNotFound
			},
		}
		r := setupAllocationRouter(NewAllocationHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/tx-1/allocations", `{"allocations":[{"booking_id":"nope","base_amount":"10"}]}`)

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "BOOKING_NOT_FOUND")
	})
}

func TestAllocationHandler_BookingRemainder(t *testing.T) {
	svc := &mockAllocationService{
		remainderFn: func(id string) (*services.BookingRemainder, error) {
			return &services.BookingRemainder{
				BookingID:     id,
				PlannedIncome: decimal.NewFromInt(1000),
				DoneIncome:    decimal.NewFromInt(400),
				LeftIncome:    decimal.NewFromInt(600),
			}, nil
		},
	}
	r := setupAllocationRouter(NewAllocationHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/bookings/BK-1/remainder", "")

	assertStatus(t, rec, http.StatusOK)
	result := parseJSON(t, rec)
	if result["booking_id"] != "BK-1" || result["left_income"] != "600" {
		t.Errorf("unexpected remainder %v", result)
	}
}
