package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"go-pos-api/internal/auth"
	"go-pos-api/internal/database"
	"go-pos-api/internal/middleware"
	"go-pos-api/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the global handle at a fresh in-memory database, one
// per test, and seeds the role set.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.Seed(db); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}

	database.DB = db
}

// setupRouter mirrors the route wiring in cmd/server.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/login", Login)
	r.POST("/register", Register)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/products", GetProducts)
		api.GET("/products/:id", GetProduct)

		api.POST("/sales", CreateSale)
		api.GET("/sales", ListSales)
		api.GET("/sales/:id", GetSale)

		admin := api.Group("/")
		admin.Use(middleware.RequireRole("Admin"))
		{
			admin.POST("/products", AddProduct)
			admin.PUT("/products/:id", UpdateProduct)
			admin.DELETE("/products/:id", DeleteProduct)
			admin.GET("/products/:id/price-history", GetPriceHistory)

			admin.GET("/users", GetUsers)
			admin.GET("/roles", GetRoles)
			admin.GET("/users/:id", GetUser)
			admin.POST("/users", CreateUser)
			admin.PUT("/users/:id", UpdateUser)
			admin.DELETE("/users/:id", DeleteUser)

			admin.GET("/reports", GetSalesReport)
			admin.GET("/reports/export", ExportSalesReport)

			admin.GET("/inventory/movements", GetInventoryMovements)
			admin.POST("/inventory/adjust", AdjustStock)
		}
	}

	return r
}

func createTestUser(t *testing.T, username, password string, roleNames []string, active bool) models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	var roles []models.Role
	for _, name := range roleNames {
		var role models.Role
		if err := database.DB.Where("name = ?", name).First(&role).Error; err != nil {
			t.Fatalf("role %q not seeded: %v", name, err)
		}
		roles = append(roles, role)
	}

	user := models.User{
		Username:     username,
		Email:        username + "@pos.com",
		PasswordHash: string(hashed),
		Active:       active,
		Roles:        roles,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %q: %v", username, err)
	}
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user.ID, user.Username, user.Email, user.RoleNames())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// seedCatalog creates one category, supplier, customer and product and
// returns them for use in sale tests.
func seedCatalog(t *testing.T, price float64, stock int) (models.Customer, models.Product) {
	t.Helper()

	category := models.Category{Name: "Drinks"}
	if err := database.DB.Create(&category).Error; err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	supplier := models.Supplier{Name: "Acme Wholesale"}
	if err := database.DB.Create(&supplier).Error; err != nil {
		t.Fatalf("failed to create supplier: %v", err)
	}
	customer := models.Customer{Name: "Walk-in"}
	if err := database.DB.Create(&customer).Error; err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	product := models.Product{
		Name:       "Cola 330ml",
		Price:      price,
		Stock:      stock,
		CategoryID: category.ID,
		SupplierID: supplier.ID,
	}
	if err := database.DB.Create(&product).Error; err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return customer, product
}

func performRequest(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func currentStock(t *testing.T, productID uint) int {
	t.Helper()
	var product models.Product
	if err := database.DB.First(&product, productID).Error; err != nil {
		t.Fatalf("failed to re-read product: %v", err)
	}
	return product.Stock
}

func countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := database.DB.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
