package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
	"crocus/internal/pagination"
	"crocus/internal/services"
)

// TransactionHandler handles ledger transaction requests.
type TransactionHandler struct {
	ledgerService services.LedgerServicer
	matcher       services.ReconciliationServicer
	auditService  services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	ledgerService services.LedgerServicer,
	matcher services.ReconciliationServicer,
	auditService services.AuditServicer,
) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService, matcher: matcher, auditService: auditService}
}

// TransactionRequest represents the payload for creating or replacing a
// transaction. The pivot amount is always derived and never accepted.
type TransactionRequest struct {
	Date           string                   `json:"date" binding:"required,iso_date"`
	DueDate        *string                  `json:"due_date" binding:"omitempty,iso_date"`
	ActualDate     *string                  `json:"actual_date" binding:"omitempty,iso_date"`
	Status         models.TransactionStatus `json:"status" binding:"required,tx_status"`
	Kind           models.MovementKind      `json:"kind" binding:"required,movement_kind"`
	Amount         decimal.Decimal          `json:"amount"`
	Currency       string                   `json:"currency" binding:"omitempty,iso4217"`
	AccountID      string                   `json:"account_id" binding:"required"`
	ToAccountID    *string                  `json:"to_account_id"`
	ToAmount       *decimal.Decimal         `json:"to_amount"`
	CategoryID     *string                  `json:"category_id"`
	CounterpartyID *string                  `json:"counterparty_id"`
	Note           string                   `json:"note" binding:"max=1000"`
	Description    string                   `json:"description" binding:"max=500"`
	PaymentMethod  models.PaymentMethod     `json:"payment_method"`
	OwnerSplits    models.OwnerAmounts      `json:"owner_splits"`
	OwnerTag       *string                  `json:"owner_tag"`
}

func (r *TransactionRequest) input() services.TransactionInput {
	return services.TransactionInput{
		Date:           r.Date,
		DueDate:        r.DueDate,
		ActualDate:     r.ActualDate,
		Status:         r.Status,
		Kind:           r.Kind,
		Amount:         r.Amount,
		Currency:       r.Currency,
		AccountID:      r.AccountID,
		ToAccountID:    r.ToAccountID,
		ToAmount:       r.ToAmount,
		CategoryID:     r.CategoryID,
		CounterpartyID: r.CounterpartyID,
		Note:           r.Note,
		Description:    r.Description,
		PaymentMethod:  r.PaymentMethod,
		OwnerSplits:    r.OwnerSplits,
		OwnerTag:       r.OwnerTag,
	}
}

// MarkActualRequest represents the payload for confirming a planned transaction.
type MarkActualRequest struct {
	ActualDate string `json:"actual_date" binding:"omitempty,iso_date"`
}

// LinkPlannedRequest represents the payload for linking an actual transaction
// to a planned entry.
type LinkPlannedRequest struct {
	PlannedID string `json:"planned_id" binding:"required"`
}

// CreateTransaction handles the creation of a ledger transaction
// @Summary     Create a transaction
// @Description Record a planned or actual movement, or a transfer between accounts
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found or no exchange rates"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	transaction, err := h.ledgerService.CreateTransaction(req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditCreateTransaction, "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{
			"kind":       transaction.Kind,
			"status":     transaction.Status,
			"amount":     transaction.Amount.String(),
			"currency":   transaction.Currency,
			"account_id": transaction.AccountID,
		})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// ListTransactions handles the retrieval of transactions
// @Summary     List transactions
// @Description Get a paginated list of transactions with optional filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page            query int    false "Page number (default 1)"
// @Param       page_size       query int    false "Items per page (default 20, max 100)"
// @Param       sort            query string false "Sort key: date, due_date, amount, created_at; prefix - for descending (default -date)"
// @Param       from_date       query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date         query string false "Latest date (YYYY-MM-DD)"
// @Param       status          query string false "planned, actual or reconciled"
// @Param       kind            query string false "in, out or transfer"
// @Param       account_id      query string false "Filter by account"
// @Param       category_id     query string false "Filter by category"
// @Param       import_batch_id query string false "Filter by import batch"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.ledgerService.ListTransactions(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter
	var err error

	if filter.FromDate, err = dateQuery(c, "from_date"); err != nil {
		return filter, err
	}
	if filter.ToDate, err = dateQuery(c, "to_date"); err != nil {
		return filter, err
	}

	if v := c.Query("status"); v != "" {
		status := models.TransactionStatus(v)
		switch status {
		case models.TransactionStatusPlanned, models.TransactionStatusActual, models.TransactionStatusReconciled:
			filter.Status = &status
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be planned, actual or reconciled")
		}
	}

	if v := c.Query("kind"); v != "" {
		kind := models.MovementKind(v)
		switch kind {
		case models.MovementIn, models.MovementOut, models.MovementTransfer:
			filter.Kind = &kind
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid kind, must be in, out or transfer")
		}
	}

	if v := c.Query("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.Query("import_batch_id"); v != "" {
		filter.ImportBatchID = &v
	}

	return filter, nil
}

// GetTransaction handles the retrieval of a single transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.ledgerService.GetTransaction(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles replacing the editable fields of a transaction
// @Summary     Update a transaction
// @Description Replace a transaction; the pivot amount and allocated orders are re-derived
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Transaction ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Invalid status change"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
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

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	transaction, err := h.ledgerService.UpdateTransaction(transactionID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditUpdateTransaction, "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{
			"status":   transaction.Status,
			"amount":   transaction.Amount.String(),
			"currency": transaction.Currency,
			"date":     transaction.Date,
		})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles removing a transaction and its orders
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
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

	if err := h.ledgerService.RemoveTransaction(transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditDeleteTransaction, "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted"})
}

// MarkActual handles confirming a planned transaction
// @Summary     Mark a planned transaction actual
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true  "Transaction ID"
// @Param       request body MarkActualRequest false "Actual date (defaults to today)"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction is not planned"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/actual [post]
func (h *TransactionHandler) MarkActual(c *gin.Context) {
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

	var req MarkActualRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, bindError(err))
			return
		}
	}

	transaction, err := h.ledgerService.MarkActual(transactionID, req.ActualDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditMarkActual, "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"actual_date": transaction.EffectiveDate()})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// LinkPlanned handles manually linking an actual transaction to a planned entry
// @Summary     Link to a planned entry
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Transaction ID"
// @Param       request body LinkPlannedRequest true "Planned entry"
// @Success     200 {object} models.Transaction "Transaction reconciled"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction or planned entry not found"
// @Failure     409 {object} ErrorResponse "Already matched"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/link [post]
func (h *TransactionHandler) LinkPlanned(c *gin.Context) {
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

	var req LinkPlannedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	transaction, err := h.ledgerService.LinkPlanned(transactionID, req.PlannedID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditLinkPlanned, "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"planned_id": req.PlannedID})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// Reconcile handles automatic matching of one actual transaction
// @Summary     Reconcile a transaction
// @Description Match an actual transaction to the closest open planned entry within 3 days and 1.00 EUR
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction reconciled"
// @Failure     404 {object} ErrorResponse "No planned entry within tolerance"
// @Failure     409 {object} ErrorResponse "Transaction cannot be reconciled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/reconcile [post]
func (h *TransactionHandler) Reconcile(c *gin.Context) {
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

	transaction, err := h.matcher.Reconcile(c.Request.Context(), transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{}
	if transaction.MatchedPlannedID != nil {
		changes["planned_id"] = *transaction.MatchedPlannedID
	}
	h.auditService.Log(actorID, services.AuditLinkPlanned, "transaction", transactionID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}
