package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
	"crocus/internal/pagination"
)

// accountService handles account and counterparty business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates an account with an opening balance in its own currency.
func (s *accountService) CreateAccount(name, currency string, openingBalance decimal.Decimal) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if len(currency) != 3 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency must be a 3-letter ISO code")
	}

	account := &models.Account{
		Name:           name,
		Currency:       strings.ToUpper(currency),
		OpeningBalance: openingBalance.Round(2),
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// ListAccounts retrieves a paginated list of accounts.
func (s *accountService) ListAccounts(page pagination.PageRequest, includeArchived bool) (*pagination.PageResponse[models.Account], error) {
	order, err := pageOrder(&page, nameSorting)
	if err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Account{})
	if !includeArchived {
		base = base.Where("archived = ?", false)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order(order).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID.
func (s *accountService) GetAccountByID(accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount applies partial updates. The currency of an account is fixed.
func (s *accountService) UpdateAccount(accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
		}
		updates["name"] = name
	}
	if fields.OpeningBalance != nil {
		updates["opening_balance"] = fields.OpeningBalance.Round(2)
	}
	if fields.Archived != nil {
		updates["archived"] = *fields.Archived
	}
	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetAccountByID(accountID)
}

// CreateCounterparty creates a counterparty.
func (s *accountService) CreateCounterparty(name string) (*models.Counterparty, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "counterparty name is required")
	}

	cp := &models.Counterparty{Name: name}
	if err := s.db.Create(cp).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return cp, nil
}

// ListCounterparties retrieves a paginated list of active counterparties.
func (s *accountService) ListCounterparties(page pagination.PageRequest) (*pagination.PageResponse[models.Counterparty], error) {
	order, err := pageOrder(&page, nameSorting)
	if err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Counterparty{}).Where("archived = ?", false)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var cps []models.Counterparty
	if err := base.Scopes(pagination.Paginate(page)).Order(order).Find(&cps).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(cps, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCounterpartyByID retrieves a counterparty by ID.
func (s *accountService) GetCounterpartyByID(counterpartyID string) (*models.Counterparty, error) {
	var cp models.Counterparty
	if err := s.db.Where("id = ?", counterpartyID).First(&cp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCounterpartyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &cp, nil
}

// ArchiveCounterparty hides a counterparty from pickers. Existing
// transactions keep their reference.
func (s *accountService) ArchiveCounterparty(counterpartyID string) error {
	cp, err := s.GetCounterpartyByID(counterpartyID)
	if err != nil {
		return err
	}
	if err := s.db.Model(cp).Update("archived", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
