package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
	"crocus/internal/pagination"
	"crocus/internal/services"
)

// --- mock account service ---

type mockAccountService struct {
	createAccountFn       func(name, currency string, openingBalance decimal.Decimal) (*models.Account, error)
	listAccountsFn        func(page pagination.PageRequest, includeArchived bool) (*pagination.PageResponse[models.Account], error)
	getAccountByIDFn      func(accountID string) (*models.Account, error)
	updateAccountFn       func(accountID string, fields services.AccountUpdateFields) (*models.Account, error)
	createCounterpartyFn  func(name string) (*models.Counterparty, error)
	archiveCounterpartyFn func(counterpartyID string) error
}

func (m *mockAccountService) CreateAccount(name, currency string, openingBalance decimal.Decimal) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(name, currency, openingBalance)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) ListAccounts(page pagination.PageRequest, includeArchived bool) (*pagination.PageResponse[models.Account], error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(page, includeArchived)
	}
	resp := pagination.NewPageResponse([]models.Account{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAccountService) GetAccountByID(accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) UpdateAccount(accountID string, fields services.AccountUpdateFields) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(accountID, fields)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) CreateCounterparty(name string) (*models.Counterparty, error) {
	if m.createCounterpartyFn != nil {
		return m.createCounterpartyFn(name)
	}
	return &models.Counterparty{Name: name}, nil
}

func (m *mockAccountService) ListCounterparties(page pagination.PageRequest) (*pagination.PageResponse[models.Counterparty], error) {
	resp := pagination.NewPageResponse([]models.Counterparty{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAccountService) GetCounterpartyByID(counterpartyID string) (*models.Counterparty, error) {
	return &models.Counterparty{}, nil
}

func (m *mockAccountService) ArchiveCounterparty(counterpartyID string) error {
	if m.archiveCounterpartyFn != nil {
		return m.archiveCounterpartyFn(counterpartyID)
	}
	return nil
}

// verify interface compliance
var _ services.AccountServicer = (*mockAccountService)(nil)

func setupAccountRouter(handler *AccountHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectActor(testActor))
	auth.POST("/accounts", handler.CreateAccount)
	auth.GET("/accounts", handler.ListAccounts)
	auth.GET("/accounts/:id", handler.GetAccount)
	auth.PATCH("/accounts/:id", handler.UpdateAccount)
	auth.POST("/counterparties", handler.CreateCounterparty)
	auth.GET("/counterparties", handler.ListCounterparties)
	auth.DELETE("/counterparties/:id", handler.ArchiveCounterparty)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotBalance decimal.Decimal
		svc := &mockAccountService{
			createAccountFn: func(name, currency string, opening decimal.Decimal) (*models.Account, error) {
				gotBalance = opening
				return &models.Account{Base: models.Base{ID: "acc-1"}, Name: name, Currency: currency, OpeningBalance: opening}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAccountRouter(NewAccountHandler(svc, audit))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Revolut EUR","currency":"EUR","opening_balance":"1250.50"}`)

		assertStatus(t, rec, http.StatusCreated)
		acct := parseJSON(t, rec)["account"].(map[string]interface{})
		if acct["name"] != "Revolut EUR" {
			t.Errorf("expected name Revolut EUR, got %v", acct["name"])
		}
		if !gotBalance.Equal(decimal.RequireFromString("1250.50")) {
			t.Errorf("expected opening balance 1250.50, got %s", gotBalance)
		}
		if len(audit.calls) != 1 || audit.calls[0].ActorID != testActor || audit.calls[0].ResourceID != "acc-1" {
			t.Errorf("expected one audit entry for acc-1 by %s, got %+v", testActor, audit.calls)
		}
	})

	t.Run("returns 400 on unknown currency", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"name":"Cash","currency":"XXX"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/accounts", `{"currency":"EUR"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("returns 401 without actor", func(t *testing.T) {
		r := gin.New()
		r.POST("/accounts", NewAccountHandler(&mockAccountService{}, &mockAuditService{}).CreateAccount)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Cash","currency":"EUR"}`)

		assertStatus(t, rec, http.StatusUnauthorized)
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})
}

func TestAccountHandler_ListAccounts(t *testing.T) {
	t.Run("passes paging and archived flag", func(t *testing.T) {
		var gotPage pagination.PageRequest
		var gotArchived bool
		svc := &mockAccountService{
			listAccountsFn: func(page pagination.PageRequest, includeArchived bool) (*pagination.PageResponse[models.Account], error) {
				gotPage = page
				gotArchived = includeArchived
				resp := pagination.NewPageResponse([]models.Account{{Name: "A"}, {Name: "B"}}, 2, 5, 7)
				return &resp, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts?page=2&page_size=5&include_archived=true", "")

		assertStatus(t, rec, http.StatusOK)
		if gotPage.Page != 2 || gotPage.PageSize != 5 || !gotArchived {
			t.Errorf("unexpected arguments: page=%+v archived=%v", gotPage, gotArchived)
		}
		data := parseJSON(t, rec)["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 accounts, got %d", len(data))
		}
	})

	t.Run("returns 400 on oversized page", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts?page_size=1000", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestAccountHandler_GetAccount(t *testing.T) {
	t.Run("returns 404 when missing", func(t *testing.T) {
		svc := &mockAccountService{
			getAccountByIDFn: func(string) (*models.Account, error) { return nil, apperrors.ErrAccountNotFound },
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/accounts/missing", "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})
}

func TestAccountHandler_UpdateAccount(t *testing.T) {
	t.Run("forwards only provided fields", func(t *testing.T) {
		var got services.AccountUpdateFields
		svc := &mockAccountService{
			updateAccountFn: func(id string, fields services.AccountUpdateFields) (*models.Account, error) {
				got = fields
				return &models.Account{Base: models.Base{ID: id}, Archived: true}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAccountRouter(NewAccountHandler(svc, audit))

		rec := doRequest(r, "PATCH", "/accounts/acc-1", `{"archived":true}`)

		assertStatus(t, rec, http.StatusOK)
		if got.Name != nil || got.OpeningBalance != nil {
			t.Errorf("expected only archived to be set, got %+v", got)
		}
		if got.Archived == nil || !*got.Archived {
			t.Error("expected archived=true to be forwarded")
		}
		if len(audit.calls) != 1 || audit.calls[0].Action != "UPDATE_ACCOUNT" {
			t.Errorf("expected UPDATE_ACCOUNT audit entry, got %+v", audit.calls)
		}
	})

	t.Run("maps archived account error", func(t *testing.T) {
		svc := &mockAccountService{
			updateAccountFn: func(string, services.AccountUpdateFields) (*models.Account, error) {
				return nil, apperrors.ErrAccountArchived
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/accounts/acc-1", `{"name":"Renamed"}`)

		assertStatus(t, rec, http.StatusConflict)
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_ARCHIVED")
	})
}

func TestAccountHandler_Counterparties(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/counterparties", `{"name":"Hotel Aurora"}`)

		assertStatus(t, rec, http.StatusCreated)
		cp := parseJSON(t, rec)["counterparty"].(map[string]interface{})
		if cp["name"] != "Hotel Aurora" {
			t.Errorf("expected Hotel Aurora, got %v", cp["name"])
		}
	})

	t.Run("archive maps not found", func(t *testing.T) {
		svc := &mockAccountService{
			archiveCounterpartyFn: func(string) error { return apperrors.ErrCounterpartyNotFound },
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/counterparties/cp-9", "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "COUNTERPARTY_NOT_FOUND")
	})
}
