package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"crocus/internal/pagination"
	"crocus/internal/services"
)

// AccountHandler handles account and counterparty requests.
type AccountHandler struct {
	accountService services.AccountServicer
	auditService   services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, auditService: auditService}
}

// CreateAccountRequest represents the request payload for creating an account.
type CreateAccountRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=100"`
	Currency       string          `json:"currency" binding:"required,iso4217"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// UpdateAccountRequest represents the request payload for updating an account.
// The currency of an account cannot be changed.
type UpdateAccountRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1,max=100"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	Archived       *bool            `json:"archived"`
}

// CreateCounterpartyRequest represents the request payload for creating a counterparty.
type CreateCounterpartyRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// CreateAccount handles the creation of a new account
// @Summary     Create an account
// @Description Create a bank, card or cash account with its own currency
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} models.Account "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.accountService.CreateAccount(req.Name, req.Currency, req.OpeningBalance)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, "CREATE_ACCOUNT", "account", account.ID, c.ClientIP(),
		map[string]interface{}{"name": account.Name, "currency": account.Currency})

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// ListAccounts handles the retrieval of accounts
// @Summary     List accounts
// @Description Get a paginated list of accounts
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       page             query int  false "Page number (default 1)"
// @Param       page_size        query int  false "Items per page (default 20, max 100)"
// @Param       sort             query string false "Sort key: name, created_at; prefix - for descending (default name)"
// @Param       include_archived query bool false "Include archived accounts"
// @Success     200 {object} pagination.PageResponse[models.Account] "Paginated accounts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.accountService.ListAccounts(page, c.Query("include_archived") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAccount handles the retrieval of a specific account
// @Summary     Get account by ID
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account "Account details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateAccount handles partial updates of an account
// @Summary     Update an account
// @Description Rename, correct the opening balance or archive an account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Account ID"
// @Param       request body UpdateAccountRequest true "Fields to update"
// @Success     200 {object} models.Account "Account updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id} [patch]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.accountService.UpdateAccount(accountID, services.AccountUpdateFields{
		Name:           req.Name,
		OpeningBalance: req.OpeningBalance,
		Archived:       req.Archived,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.OpeningBalance != nil {
		changes["opening_balance"] = req.OpeningBalance.String()
	}
	if req.Archived != nil {
		changes["archived"] = *req.Archived
	}
	h.auditService.Log(actorID, "UPDATE_ACCOUNT", "account", accountID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// CreateCounterparty handles the creation of a counterparty
// @Summary     Create a counterparty
// @Tags        counterparties
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCounterpartyRequest true "Counterparty details"
// @Success     201 {object} models.Counterparty "Counterparty created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /counterparties [post]
func (h *AccountHandler) CreateCounterparty(c *gin.Context) {
	var req CreateCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	cp, err := h.accountService.CreateCounterparty(req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"counterparty": cp})
}

// ListCounterparties handles the retrieval of active counterparties
// @Summary     List counterparties
// @Tags        counterparties
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Param       sort      query string false "Sort key: name, created_at; prefix - for descending (default name)"
// @Success     200 {object} pagination.PageResponse[models.Counterparty] "Paginated counterparties"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /counterparties [get]
func (h *AccountHandler) ListCounterparties(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.accountService.ListCounterparties(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ArchiveCounterparty hides a counterparty from pickers
// @Summary     Archive a counterparty
// @Tags        counterparties
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Counterparty ID"
// @Success     200 {object} MessageResponse "Counterparty archived"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Counterparty not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /counterparties/{id} [delete]
func (h *AccountHandler) ArchiveCounterparty(c *gin.Context) {
	counterpartyID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accountService.ArchiveCounterparty(counterpartyID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Counterparty archived"})
}
