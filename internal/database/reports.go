package database

import (
	"time"

	"go-pos-api/internal/models"
)

// SalesReportResult holds the totals for a date range. Used by the report
// endpoint and by the AI assistant's get_sales_report tool.
type SalesReportResult struct {
	TotalRevenue float64
	TotalCount   int64
}

// GetSalesReport calculates sales within a specific date range
func GetSalesReport(start, end time.Time) (*SalesReportResult, error) {
	var result SalesReportResult

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := DB.Model(&models.Sale{}).
		Where("sale_time BETWEEN ? AND ?", start, end).
		Select("COALESCE(SUM(total), 0)").
		Scan(&result.TotalRevenue).Error

	if err != nil {
		return nil, err
	}

	err = DB.Model(&models.Sale{}).
		Where("sale_time BETWEEN ? AND ?", start, end).
		Count(&result.TotalCount).Error

	if err != nil {
		return nil, err
	}

	return &result, nil
}

// LowStockRow is one product at or below the requested threshold.
type LowStockRow struct {
	ID    uint
	Name  string
	Stock int
}

// GetLowStock lists products whose stock has fallen to the threshold or below.
func GetLowStock(threshold int) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := DB.Model(&models.Product{}).
		Select("id, name, stock").
		Where("stock <= ?", threshold).
		Order("stock asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
