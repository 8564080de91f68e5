package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"go-pos-api/internal/auth"
	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

func saleBody(customerID uint, lines ...[2]int) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		items = append(items, map[string]interface{}{
			"product_id": l[0],
			"quantity":   l[1],
		})
	}
	return map[string]interface{}{
		"customer_id": customerID,
		"items":       items,
	}
}

// The §8-style baseline: price 25.00, stock 5, sell 3. Total and subtotal
// must be 75.00, stock drops to 2, one movement row with delta -3.
func TestCreateSaleHappyPath(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 25.00, 5)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 3}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SaleResponse
	decodeJSON(t, w, &resp)

	if resp.Total != 75.00 {
		t.Errorf("total = %v, want 75.00", resp.Total)
	}
	if resp.CustomerName != customer.Name {
		t.Errorf("customer_name = %q, want %q", resp.CustomerName, customer.Name)
	}
	if resp.UserName != cashier.Username {
		t.Errorf("user_name = %q, want %q", resp.UserName, cashier.Username)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	line := resp.Items[0]
	if line.ProductName != product.Name {
		t.Errorf("product_name = %q, want %q", line.ProductName, product.Name)
	}
	if line.UnitPrice != 25.00 || line.Subtotal != 75.00 {
		t.Errorf("unit_price/subtotal = %v/%v, want 25.00/75.00", line.UnitPrice, line.Subtotal)
	}

	if got := currentStock(t, product.ID); got != 2 {
		t.Errorf("stock after sale = %d, want 2", got)
	}

	var movements []models.InventoryMovement
	if err := database.DB.Where("product_id = ?", product.ID).Find(&movements).Error; err != nil {
		t.Fatalf("failed to read movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(movements))
	}
	if movements[0].Quantity != -3 || movements[0].MovementType != models.MovementSale {
		t.Errorf("movement = %+v, want quantity -3 type sale", movements[0])
	}

	// Persisted total must equal the sum of persisted line subtotals
	var sale models.Sale
	if err := database.DB.Preload("Items").First(&sale, resp.ID).Error; err != nil {
		t.Fatalf("failed to re-read sale: %v", err)
	}
	var sum float64
	for _, item := range sale.Items {
		sum += item.Subtotal
	}
	if sale.Total != sum {
		t.Errorf("persisted total %v != sum of subtotals %v", sale.Total, sum)
	}
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 25.00, 2)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 3}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Insufficient stock") {
		t.Errorf("body = %s, want insufficient stock message", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "available 2") || !strings.Contains(w.Body.String(), "requested 3") {
		t.Errorf("body = %s, want available/requested counts", w.Body.String())
	}

	if got := currentStock(t, product.ID); got != 2 {
		t.Errorf("stock = %d, want unchanged 2", got)
	}
	if n := countRows(t, &models.Sale{}); n != 0 {
		t.Errorf("sales persisted = %d, want 0", n)
	}
	if n := countRows(t, &models.SaleItem{}); n != 0 {
		t.Errorf("sale items persisted = %d, want 0", n)
	}
	if n := countRows(t, &models.InventoryMovement{}); n != 0 {
		t.Errorf("movements persisted = %d, want 0", n)
	}
}

// A failing second line must also undo the first line's writes.
func TestCreateSalePartialCartRollsBackWholeSale(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 10.00, 10)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 2}, [2]int{9999, 1}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Unknown product") {
		t.Errorf("body = %s, want unknown product message", w.Body.String())
	}

	if got := currentStock(t, product.ID); got != 10 {
		t.Errorf("stock = %d, want unchanged 10 after rollback", got)
	}
	if n := countRows(t, &models.InventoryMovement{}); n != 0 {
		t.Errorf("movements persisted = %d, want 0", n)
	}
}

// Two lines for the same product must accumulate against shrinking stock.
func TestCreateSaleSameProductTwiceAccumulates(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 5.00, 5)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 3}, [2]int{int(product.ID), 2}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SaleResponse
	decodeJSON(t, w, &resp)
	if resp.Total != 25.00 {
		t.Errorf("total = %v, want 25.00", resp.Total)
	}
	if got := currentStock(t, product.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}

	// And a third unit over the remaining stock must fail: the second
	// line's validation saw the first line's decrement.
	w = performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 4}, [2]int{int(product.ID), 2}))
	if w.Code == http.StatusCreated {
		t.Fatal("expected over-stock cart to be rejected")
	}
}

func TestCreateSaleSameProductOverStockAcrossLines(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 5.00, 5)

	// 3 + 3 > 5: the second line must see only 2 remaining
	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 3}, [2]int{int(product.ID), 3}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "available 2") {
		t.Errorf("body = %s, want validation against post-decrement stock", w.Body.String())
	}
	if got := currentStock(t, product.ID); got != 5 {
		t.Errorf("stock = %d, want unchanged 5", got)
	}
}

// Resubmitting an identical cart is two sales and two decrements. Checkout
// is deliberately not idempotent.
func TestCreateSaleDoubleSubmissionNotDeduplicated(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 2.50, 10)

	body := saleBody(customer.ID, [2]int{int(product.ID), 2})
	for i := 0; i < 2; i++ {
		w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier), body)
		if w.Code != http.StatusCreated {
			t.Fatalf("submission %d: status = %d, body = %s", i+1, w.Code, w.Body.String())
		}
	}

	if n := countRows(t, &models.Sale{}); n != 2 {
		t.Errorf("sales = %d, want 2 distinct sales", n)
	}
	if got := currentStock(t, product.ID); got != 6 {
		t.Errorf("stock = %d, want 6 after two decrements", got)
	}
}

func TestCreateSaleUnknownCustomer(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	_, product := seedCatalog(t, 1.00, 5)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(9999, [2]int{int(product.ID), 1}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Unknown customer") {
		t.Errorf("body = %s, want unknown customer message", w.Body.String())
	}
	if got := currentStock(t, product.ID); got != 5 {
		t.Errorf("stock = %d, want untouched 5", got)
	}
}

func TestCreateSaleNonPositiveQuantity(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 1.00, 5)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), -2}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := currentStock(t, product.ID); got != 5 {
		t.Errorf("stock = %d, want untouched 5", got)
	}
}

// The price snapshot comes from the product row, never the request body.
func TestCreateSaleIgnoresClientSuppliedPrice(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 30.00, 5)

	body := map[string]interface{}{
		"customer_id": customer.ID,
		"items": []map[string]interface{}{
			{"product_id": product.ID, "quantity": 1, "unit_price": 0.01},
		},
	}
	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SaleResponse
	decodeJSON(t, w, &resp)
	if resp.Total != 30.00 {
		t.Errorf("total = %v, want the stored price 30.00", resp.Total)
	}
}

// A later price change must not rewrite past receipts.
func TestSaleKeepsPriceSnapshotAfterPriceChange(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 25.00, 5)

	w := performRequest(r, "POST", "/api/sales", tokenFor(t, cashier),
		saleBody(customer.ID, [2]int{int(product.ID), 1}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var created SaleResponse
	decodeJSON(t, w, &created)

	if err := database.DB.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price", 99.00).Error; err != nil {
		t.Fatalf("failed to change price: %v", err)
	}

	w = performRequest(r, "GET", fmt.Sprintf("/api/sales/%d", created.ID), tokenFor(t, cashier), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var fetched SaleResponse
	decodeJSON(t, w, &fetched)
	if fetched.Items[0].UnitPrice != 25.00 {
		t.Errorf("unit_price = %v, want the 25.00 snapshot", fetched.Items[0].UnitPrice)
	}
}

func TestGetSaleNotFound(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashier := createTestUser(t, "cashier", "secret123", []string{"POS"}, true)

	w := performRequest(r, "GET", "/api/sales/555", tokenFor(t, cashier), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListSalesFiltersAndOmitsItems(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	cashierA := createTestUser(t, "alice", "secret123", []string{"POS"}, true)
	cashierB := createTestUser(t, "bob", "secret123", []string{"POS"}, true)
	customer, product := seedCatalog(t, 1.00, 100)

	performRequest(r, "POST", "/api/sales", tokenFor(t, cashierA),
		saleBody(customer.ID, [2]int{int(product.ID), 1}))
	performRequest(r, "POST", "/api/sales", tokenFor(t, cashierB),
		saleBody(customer.ID, [2]int{int(product.ID), 2}))

	w := performRequest(r, "GET", fmt.Sprintf("/api/sales?user_id=%d", cashierA.ID), tokenFor(t, cashierA), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var list []SaleResponse
	decodeJSON(t, w, &list)
	if len(list) != 1 {
		t.Fatalf("filtered list = %d entries, want 1", len(list))
	}
	if list[0].UserName != "alice" {
		t.Errorf("user_name = %q, want alice", list[0].UserName)
	}
	if len(list[0].Items) != 0 {
		t.Errorf("list view carries %d items, want none", len(list[0].Items))
	}

	// Date-range filter excluding today returns nothing
	w = performRequest(r, "GET", "/api/sales?to=2000-01-01", tokenFor(t, cashierA), nil)
	decodeJSON(t, w, &list)
	if len(list) != 0 {
		t.Errorf("ancient range returned %d sales, want 0", len(list))
	}
}

// A token past its 7-day expiry is refused on every protected endpoint.
func TestExpiredTokenRejectedOnSales(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	customer, product := seedCatalog(t, 1.00, 5)

	claims := &auth.Claims{
		UserID:   1,
		Username: "old",
		Roles:    []string{"POS"},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("super_secret_key_for_pos_system_2025"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	w := performRequest(r, "POST", "/api/sales", signed,
		saleBody(customer.ID, [2]int{int(product.ID), 1}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for expired token", w.Code)
	}
}
