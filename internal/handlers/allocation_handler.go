package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"crocus/internal/services"
)

// AllocationHandler handles booking allocation requests.
type AllocationHandler struct {
	allocationService services.AllocationServicer
	auditService      services.AuditServicer
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(allocationService services.AllocationServicer, auditService services.AuditServicer) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService, auditService: auditService}
}

// AllocationItem allocates part of a transaction to one booking.
type AllocationItem struct {
	BookingID  string          `json:"booking_id" binding:"required"`
	BaseAmount decimal.Decimal `json:"base_amount"`
}

// UpsertAllocationsRequest replaces every allocation of a transaction.
// An empty list clears them.
type UpsertAllocationsRequest struct {
	Allocations []AllocationItem `json:"allocations" binding:"dive"`
}

// UpsertAllocations handles replacing the orders of a transaction
// @Summary     Replace allocations
// @Description Atomically replace the booking allocations (orders) of a transaction
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpsertAllocationsRequest true "Allocations"
// @Success     200 {array}  models.Order "Orders after the replace"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction or booking not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/allocations [put]
func (h *AllocationHandler) UpsertAllocations(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpsertAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	inputs := make([]services.AllocationInput, 0, len(req.Allocations))
	audit := make(map[string]interface{}, len(req.Allocations))
	for _, a := range req.Allocations {
		inputs = append(inputs, services.AllocationInput{BookingID: a.BookingID, BaseAmount: a.BaseAmount})
		audit[a.BookingID] = a.BaseAmount.String()
	}

	orders, err := h.allocationService.UpsertAllocations(transactionID, inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditAllocations, "transaction", transactionID, c.ClientIP(), audit)

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetAllocations handles listing the orders of a transaction
// @Summary     Get allocations
// @Tags        allocations
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {array}  models.Order "Orders"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/allocations [get]
func (h *AllocationHandler) GetAllocations(c *gin.Context) {
	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	orders, err := h.allocationService.GetAllocations(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// BookingRemainder handles the remainder query of a booking
// @Summary     Booking remainder
// @Description Income still to collect and expense still to pay for a booking, from actual and reconciled orders
// @Tags        allocations
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Booking ID"
// @Success     200 {object} services.BookingRemainder "Remainder"
// @Failure     404 {object} ErrorResponse "Booking not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /bookings/{id}/remainder [get]
func (h *AllocationHandler) BookingRemainder(c *gin.Context) {
	bookingID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	remainder, err := h.allocationService.BookingRemainder(bookingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, remainder)
}
