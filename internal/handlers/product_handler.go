package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/gin-gonic/gin"
)

type ProductRequest struct {
	Name       string  `json:"name" binding:"required"`
	ImageURL   string  `json:"image_url"`
	Price      float64 `json:"price" binding:"required,gt=0"`
	Stock      int     `json:"stock" binding:"gte=0"`
	CategoryID uint    `json:"category_id" binding:"required"`
	SupplierID uint    `json:"supplier_id" binding:"required"`
}

// --- GET: List products, with name search and pagination ---
func GetProducts(c *gin.Context) {
	page, pageSize := paginationParams(c)

	query := database.DB.Model(&models.Product{}).
		Preload("Category").
		Preload("Supplier")

	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var products []models.Product
	err := query.
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// --- GET: Single product ---
func GetProduct(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	err := database.DB.Preload("Category").Preload("Supplier").First(&product, id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// --- POST: Add a new product ---
func AddProduct(c *gin.Context) {
	var input ProductRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// Category and supplier must exist before we create the row
	var count int64
	database.DB.Model(&models.Category{}).Where("id = ?", input.CategoryID).Count(&count)
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown category %d", input.CategoryID)})
		return
	}
	database.DB.Model(&models.Supplier{}).Where("id = ?", input.SupplierID).Count(&count)
	if count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown supplier %d", input.SupplierID)})
		return
	}

	product := models.Product{
		Name:       input.Name,
		ImageURL:   input.ImageURL,
		Price:      input.Price,
		Stock:      input.Stock,
		CategoryID: input.CategoryID,
		SupplierID: input.SupplierID,
	}
	if err := database.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// --- PUT: Partial update ---
// When the price changes, a PriceHistory row is appended in the same
// transaction as the update.
func UpdateProduct(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Product ID"})
		return
	}

	var product models.Product
	if err := database.DB.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	// We use a map so we only update what was sent (partial update)
	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if catRaw, ok := updateData["category_id"]; ok {
		var count int64
		database.DB.Model(&models.Category{}).Where("id = ?", catRaw).Count(&count)
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
			return
		}
	}
	if supRaw, ok := updateData["supplier_id"]; ok {
		var count int64
		database.DB.Model(&models.Supplier{}).Where("id = ?", supRaw).Count(&count)
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown supplier"})
			return
		}
	}

	oldPrice := product.Price

	tx := database.DB.Begin()
	if err := tx.Model(&product).Updates(updateData).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	if newRaw, ok := updateData["price"]; ok {
		if newPrice, ok := newRaw.(float64); ok && newPrice != oldPrice {
			history := models.PriceHistory{
				ProductID: product.ID,
				OldPrice:  oldPrice,
				NewPrice:  newPrice,
				ChangedAt: time.Now(),
			}
			if err := tx.Create(&history).Error; err != nil {
				tx.Rollback()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record price change"})
				return
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	// Re-read so the response reflects what was committed
	database.DB.First(&product, product.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

// --- DELETE: Remove a product ---
func DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	if err := database.DB.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var saleItemCount int64
	if err := database.DB.Model(&models.SaleItem{}).Where("product_id = ?", product.ID).Count(&saleItemCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product references"})
		return
	}
	if saleItemCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not delete product. It is linked to past sales."})
		return
	}

	if err := database.DB.Delete(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- GET: Price change audit for one product ---
func GetPriceHistory(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	if err := database.DB.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var history []models.PriceHistory
	err := database.DB.
		Where("product_id = ?", product.ID).
		Order("changed_at desc").
		Find(&history).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch price history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// --- UPLOAD: Handle Image Files ---
func UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	// Unique filename, e.g. "167890123_burger.jpg"
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), file.Filename)
	filepath := "./uploads/" + filename

	if err := c.SaveUploadedFile(file, filepath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     baseURL + "/uploads/" + filename,
	})
}
