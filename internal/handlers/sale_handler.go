package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleRequest defines what the Frontend sends us
type SaleRequest struct {
	CustomerID uint `json:"customer_id" binding:"required"`
	Items      []struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity" binding:"required"`
	} `json:"items" binding:"required,min=1"`
}

// SaleLineResponse and SaleResponse are the hydrated receipt view: names are
// resolved server-side so the frontend never has to join.
type SaleLineResponse struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type SaleResponse struct {
	ID           uint               `json:"id"`
	SaleTime     time.Time          `json:"sale_time"`
	Total        float64            `json:"total"`
	CustomerID   uint               `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	UserID       uint               `json:"user_id"`
	UserName     string             `json:"user_name"`
	Items        []SaleLineResponse `json:"items,omitempty"`
}

// lockedForUpdate applies a row lock where the engine supports it. SQLite
// (used by the tests) has no FOR UPDATE; its writes are serialized anyway.
func lockedForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CreateSale is the checkout transaction: validate customer and stock,
// decrement inventory, write the sale header + lines + movement rows, all
// inside one transaction. Any failure rolls the whole cart back.
func CreateSale(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := c.MustGet("userID").(uint)

	tx := database.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	// 1. The customer must exist before anything is written
	var customer models.Customer
	if err := tx.First(&customer, req.CustomerID).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown customer %d", req.CustomerID)})
		return
	}

	var cashier models.User
	if err := tx.First(&cashier, userID).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown cashier account"})
		return
	}

	var totalAmount float64
	var saleItems []models.SaleItem
	saleTime := time.Now()
	// Products seen so far, for hydrating the response from the same
	// entities the transaction wrote (no post-commit read-back).
	productNames := make(map[uint]string)

	// 2. Lines in submitted order. The re-read per line means a second line
	// for the same product validates against the stock the first line
	// already took.
	for _, item := range req.Items {
		if item.Quantity < 1 {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Quantity for product %d must be at least 1", item.ProductID)})
			return
		}

		var product models.Product
		if err := lockedForUpdate(tx).First(&product, item.ProductID).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown product %d", item.ProductID)})
			return
		}

		if product.Stock < item.Quantity {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Insufficient stock for %s: available %d, requested %d",
					product.Name, product.Stock, item.Quantity),
			})
			return
		}

		product.Stock -= item.Quantity
		if err := tx.Save(&product).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
			return
		}

		// Price snapshot comes from the row we just locked, never from the
		// request body.
		subtotal := product.Price * float64(item.Quantity)
		totalAmount += subtotal
		productNames[product.ID] = product.Name

		saleItems = append(saleItems, models.SaleItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})

		movement := models.InventoryMovement{
			ProductID:    product.ID,
			MovementType: models.MovementSale,
			Quantity:     -item.Quantity,
			MovementTime: saleTime,
		}
		if err := tx.Create(&movement).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record inventory movement"})
			return
		}
	}

	// 3. Create the Sale Header (GORM inserts the items with it)
	sale := models.Sale{
		SaleTime:   saleTime,
		Total:      totalAmount,
		CustomerID: customer.ID,
		UserID:     cashier.ID,
		Items:      saleItems,
	}
	if err := tx.Create(&sale).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create sale record"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit sale"})
		return
	}

	// 4. Hydrate the response from the entities gathered inside the
	// transaction. Nothing here can observe data the commit didn't write.
	resp := SaleResponse{
		ID:           sale.ID,
		SaleTime:     sale.SaleTime,
		Total:        sale.Total,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		UserID:       cashier.ID,
		UserName:     cashier.Username,
	}
	for _, item := range sale.Items {
		resp.Items = append(resp.Items, SaleLineResponse{
			ProductID:   item.ProductID,
			ProductName: productNames[item.ProductID],
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSale returns one hydrated sale by id.
func GetSale(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sale ID"})
		return
	}

	var sale models.Sale
	err = database.DB.
		Preload("Customer").
		Preload("User").
		Preload("Items").
		Preload("Items.Product").
		First(&sale, id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sale not found"})
		return
	}

	resp := SaleResponse{
		ID:           sale.ID,
		SaleTime:     sale.SaleTime,
		Total:        sale.Total,
		CustomerID:   sale.CustomerID,
		CustomerName: sale.Customer.Name,
		UserID:       sale.UserID,
		UserName:     sale.User.Username,
	}
	for _, item := range sale.Items {
		resp.Items = append(resp.Items, SaleLineResponse{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// ListSales returns paginated sale headers, newest first, items omitted.
// Optional filters: user_id (cashier) and a from/to date range.
func ListSales(c *gin.Context) {
	page, pageSize := paginationParams(c)

	query := database.DB.Model(&models.Sale{}).
		Preload("Customer").
		Preload("User")

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.Atoi(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}

	from, to, err := dateRangeParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !from.IsZero() {
		query = query.Where("sale_time >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("sale_time <= ?", to)
	}

	var sales []models.Sale
	err = query.
		Order("sale_time desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sales).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales"})
		return
	}

	resp := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		resp = append(resp, SaleResponse{
			ID:           sale.ID,
			SaleTime:     sale.SaleTime,
			Total:        sale.Total,
			CustomerID:   sale.CustomerID,
			CustomerName: sale.Customer.Name,
			UserID:       sale.UserID,
			UserName:     sale.User.Username,
		})
	}

	c.JSON(http.StatusOK, resp)
}
