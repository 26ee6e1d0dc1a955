package models

// CategorySide classifies what a category measures in the P&L.
type CategorySide string

const (
	CategorySideIncome  CategorySide = "income"
	CategorySideExpense CategorySide = "expense"
	CategorySideCogs    CategorySide = "cogs"
)

// Category classifies transactions. System categories are used by automated
// postings and cannot be renamed or deleted.
type Category struct {
	Base
	Name      string       `gorm:"not null" json:"name"`
	Side      CategorySide `gorm:"type:varchar(16);not null" json:"side"`
	System    bool         `gorm:"not null;default:false" json:"system"`
	SystemKey *string      `gorm:"uniqueIndex" json:"system_key,omitempty"`
}
