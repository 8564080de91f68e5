package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportData defines the shape of our analytics response
type ReportData struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalOrders  int64   `json:"total_orders"`
	TopSelling   []struct {
		ProductName string  `json:"product_name"`
		Sold        int     `json:"sold"`
		Revenue     float64 `json:"revenue"`
	} `json:"top_selling"`
	RecentSales []SaleResponse `json:"recent_sales"`
}

// applyRange narrows a sale query to the optional from/to window.
func applyRange(query *gorm.DB, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		query = query.Where("sale_time >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("sale_time <= ?", to)
	}
	return query
}

// --- GET: /api/reports ---
func GetSalesReport(c *gin.Context) {
	from, to, err := dateRangeParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var data ReportData

	// 1. Total Revenue (COALESCE: 0 instead of NULL when no sales exist)
	err = applyRange(database.DB.Model(&models.Sale{}), from, to).
		Select("COALESCE(SUM(total), 0)").
		Scan(&data.TotalRevenue).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate revenue"})
		return
	}

	// 2. Count Total Orders
	err = applyRange(database.DB.Model(&models.Sale{}), from, to).
		Count(&data.TotalOrders).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	// 3. Top 5 Best Sellers
	topQuery := database.DB.Table("sale_items").
		Select("products.name as product_name, SUM(sale_items.quantity) as sold, SUM(sale_items.subtotal) as revenue").
		Joins("JOIN products ON sale_items.product_id = products.id").
		Joins("JOIN sales ON sale_items.sale_id = sales.id")
	if !from.IsZero() {
		topQuery = topQuery.Where("sales.sale_time >= ?", from)
	}
	if !to.IsZero() {
		topQuery = topQuery.Where("sales.sale_time <= ?", to)
	}
	err = topQuery.
		Group("products.name").
		Order("sold desc").
		Limit(5).
		Scan(&data.TopSelling).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top selling items"})
		return
	}

	// 4. Last 10 sales, newest first
	var recent []models.Sale
	err = applyRange(database.DB.Preload("Customer").Preload("User"), from, to).
		Order("sale_time desc").
		Limit(10).
		Find(&recent).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent sales"})
		return
	}
	for _, sale := range recent {
		data.RecentSales = append(data.RecentSales, SaleResponse{
			ID:           sale.ID,
			SaleTime:     sale.SaleTime,
			Total:        sale.Total,
			CustomerID:   sale.CustomerID,
			CustomerName: sale.Customer.Name,
			UserID:       sale.UserID,
			UserName:     sale.User.Username,
		})
	}

	c.JSON(http.StatusOK, data)
}

// --- GET: /api/reports/export ---
// ExportSalesReport writes the report as an .xlsx workbook: a summary sheet
// plus one row per sale.
func ExportSalesReport(c *gin.Context) {
	from, to, err := dateRangeParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var totalRevenue float64
	var totalOrders int64
	if err := applyRange(database.DB.Model(&models.Sale{}), from, to).
		Select("COALESCE(SUM(total), 0)").Scan(&totalRevenue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate revenue"})
		return
	}
	if err := applyRange(database.DB.Model(&models.Sale{}), from, to).
		Count(&totalOrders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	var sales []models.Sale
	err = applyRange(database.DB.Preload("Customer").Preload("User"), from, to).
		Order("sale_time desc").
		Find(&sales).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	f.SetSheetName("Sheet1", summary)
	f.SetCellValue(summary, "A1", "Total revenue")
	f.SetCellValue(summary, "B1", totalRevenue)
	f.SetCellValue(summary, "A2", "Total orders")
	f.SetCellValue(summary, "B2", totalOrders)
	if !from.IsZero() {
		f.SetCellValue(summary, "A3", "From")
		f.SetCellValue(summary, "B3", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		f.SetCellValue(summary, "A4", "To")
		f.SetCellValue(summary, "B4", to.Format("2006-01-02"))
	}

	sheet := "Sales"
	if _, err := f.NewSheet(sheet); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build workbook"})
		return
	}
	headers := []string{"Sale ID", "Date", "Customer", "Cashier", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for row, sale := range sales {
		values := []interface{}{
			sale.ID,
			sale.SaleTime.Format("2006-01-02 15:04:05"),
			sale.Customer.Name,
			sale.User.Username,
			sale.Total,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("sales-report-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
		return
	}
}
