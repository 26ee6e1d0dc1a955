package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"crocus/internal/config"
	apperrors "crocus/internal/errors"
	"crocus/internal/models"
	"crocus/internal/pagination"
)

// SystemCategories are the categories automated postings fall back to.
type SystemCategories struct {
	ClientPayment *models.Category
	RefundOther   *models.Category
}

// categoryService handles category business logic.
type categoryService struct {
	db   *gorm.DB
	keys config.SystemCategoryKeys
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, keys config.SystemCategoryKeys) CategoryServicer {
	return &categoryService{db: db, keys: keys}
}

func validSide(side models.CategorySide) bool {
	switch side {
	case models.CategorySideIncome, models.CategorySideExpense, models.CategorySideCogs:
		return true
	}
	return false
}

// CreateCategory creates a new operator category.
func (s *categoryService) CreateCategory(name string, side models.CategorySide) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if !validSide(side) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category side must be income, expense or cogs")
	}

	if err := s.checkDuplicate(name, ""); err != nil {
		return nil, err
	}

	category := &models.Category{Name: name, Side: side}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

func (s *categoryService) checkDuplicate(name, exceptID string) error {
	q := s.db.Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}

// ListCategories retrieves a paginated list of categories, optionally by side.
func (s *categoryService) ListCategories(page pagination.PageRequest, side *models.CategorySide) (*pagination.PageResponse[models.Category], error) {
	order, err := pageOrder(&page, nameSorting)
	if err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Category{})
	if side != nil {
		base = base.Where("side = ?", *side)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Scopes(pagination.Paginate(page)).Order(order).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID.
func (s *categoryService) GetCategoryByID(categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory renames or re-classifies an operator category.
func (s *categoryService) UpdateCategory(categoryID string, name *string, side *models.CategorySide) (*models.Category, error) {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}
	if category.System {
		return nil, apperrors.ErrSystemCategory
	}

	updates := map[string]interface{}{}
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name cannot be empty")
		}
		if err := s.checkDuplicate(n, categoryID); err != nil {
			return nil, err
		}
		updates["name"] = n
	}
	if side != nil {
		if !validSide(*side) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category side must be income, expense or cogs")
		}
		updates["side"] = *side
	}
	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.Model(category).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetCategoryByID(categoryID)
}

// DeleteCategory deletes an unused operator category.
func (s *categoryService) DeleteCategory(categoryID string) error {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return err
	}
	if category.System {
		return apperrors.ErrSystemCategory
	}

	var inUse int64
	if err := s.db.Model(&models.Transaction{}).Where("category_id = ?", categoryID).Count(&inUse).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if inUse > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// EnsureSystemCategories returns the system categories, creating them on
// first use.
func (s *categoryService) EnsureSystemCategories() (*SystemCategories, error) {
	clientPayment, err := s.ensureSystem(s.keys.ClientPayment, "Client payment", models.CategorySideIncome)
	if err != nil {
		return nil, err
	}
	refund, err := s.ensureSystem(s.keys.RefundOther, "Refund / other", models.CategorySideExpense)
	if err != nil {
		return nil, err
	}
	return &SystemCategories{ClientPayment: clientPayment, RefundOther: refund}, nil
}

func (s *categoryService) ensureSystem(key, name string, side models.CategorySide) (*models.Category, error) {
	var category models.Category
	err := s.db.Where("system_key = ?", key).First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	k := key
	category = models.Category{Name: name, Side: side, System: true, SystemKey: &k}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}
