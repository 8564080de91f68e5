package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/gin-gonic/gin"
)

type AdjustmentRequest struct {
	ProductID    uint   `json:"product_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	MovementType string `json:"movement_type" binding:"required"`
}

// GetInventoryMovements lists the audit trail, newest first, with optional
// product filter. Movements are append-only; there is no mutation endpoint.
func GetInventoryMovements(c *gin.Context) {
	page, pageSize := paginationParams(c)

	query := database.DB.Model(&models.InventoryMovement{}).Preload("Product")

	if productIDStr := c.Query("product_id"); productIDStr != "" {
		productID, err := strconv.Atoi(productIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
			return
		}
		query = query.Where("product_id = ?", productID)
	}

	var movements []models.InventoryMovement
	err := query.
		Order("movement_time desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&movements).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch movements"})
		return
	}

	c.JSON(http.StatusOK, movements)
}

// AdjustStock records a manual stock entry or adjustment: the stock change
// and the movement row commit together or not at all.
func AdjustStock(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.MovementType != models.MovementEntry && req.MovementType != models.MovementAdjustment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movement_type must be 'entry' or 'adjustment'"})
		return
	}
	if req.MovementType == models.MovementEntry && req.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Entry quantity must be positive"})
		return
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	var product models.Product
	if err := lockedForUpdate(tx).First(&product, req.ProductID).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown product %d", req.ProductID)})
		return
	}

	newStock := product.Stock + req.Quantity
	if newStock < 0 {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Adjustment would take %s below zero: available %d, delta %d",
				product.Name, product.Stock, req.Quantity),
		})
		return
	}

	product.Stock = newStock
	if err := tx.Save(&product).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
		return
	}

	movement := models.InventoryMovement{
		ProductID:    product.ID,
		MovementType: req.MovementType,
		Quantity:     req.Quantity,
		MovementTime: time.Now(),
	}
	if err := tx.Create(&movement).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record movement"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit adjustment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Stock adjusted",
		"movement": movement,
		"stock":    product.Stock,
	})
}
