package models

import (
	"time"
)

// User - The cashier/admin accounts. A user can hold several roles at once,
// e.g. an admin that also works the register.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:100" json:"email"`
	PasswordHash string    `json:"-"` // Never return this in JSON
	Active       bool      `gorm:"default:true" json:"active"`
	Roles        []Role    `gorm:"many2many:user_roles" json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames flattens the role set for token claims and API responses.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Role - 'Admin', 'POS', 'User'
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:30" json:"name"`
	Description string `json:"description"`
}

// Category - Product grouping (Drinks, Snacks, ...)
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:80" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Supplier - Who we buy stock from
type Supplier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100" json:"name"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer - Who we sell to. Referenced by every sale.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100" json:"name"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product - The Inventory. Stock must never go below zero; the sale
// transaction and manual adjustments are the only writers.
type Product struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:120" json:"name"`
	ImageURL   string    `json:"image_url"`
	Price      float64   `json:"price"`
	Stock      int       `json:"stock"`
	CategoryID uint      `json:"category_id"`
	Category   Category  `json:"category"`
	SupplierID uint      `json:"supplier_id"`
	Supplier   Supplier  `json:"supplier"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Sale - The Transaction Header. Written exactly once per checkout, never
// edited or voided afterwards.
type Sale struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SaleTime   time.Time  `json:"sale_time"`
	Total      float64    `json:"total"`
	CustomerID uint       `json:"customer_id"`
	Customer   Customer   `json:"customer"`
	UserID     uint       `json:"user_id"` // Who processed it
	User       User       `json:"user"`
	Items      []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SaleItem - One product/quantity entry within a sale. UnitPrice is a
// snapshot of the product price at sale time, not a live link.
type SaleItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	SaleID    uint    `json:"sale_id"`
	ProductID uint    `json:"product_id"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"` // Quantity * UnitPrice
}

// Movement type tags for InventoryMovement.
const (
	MovementSale       = "sale"
	MovementEntry      = "entry"
	MovementAdjustment = "adjustment"
)

// InventoryMovement - Append-only audit trail of every stock change.
// Quantity is signed: negative for sales, positive for entries.
type InventoryMovement struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProductID    uint      `gorm:"index" json:"product_id"`
	Product      Product   `json:"product"`
	MovementType string    `gorm:"size:20" json:"movement_type"`
	Quantity     int       `json:"quantity"`
	MovementTime time.Time `json:"movement_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// PriceHistory - One row appended whenever a product's price changes.
type PriceHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"index" json:"product_id"`
	OldPrice  float64   `json:"old_price"`
	NewPrice  float64   `json:"new_price"`
	ChangedAt time.Time `json:"changed_at"`
}
