package database

import (
	"fmt"
	"testing"

	"go-pos-api/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestSeedCreatesRolesAndAdmin(t *testing.T) {
	db := openTestDB(t)

	if err := Seed(db); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	var roleCount int64
	db.Model(&models.Role{}).Count(&roleCount)
	if roleCount != 3 {
		t.Errorf("roles = %d, want 3", roleCount)
	}

	var admin models.User
	if err := db.Preload("Roles").Where("username = ?", "admin").First(&admin).Error; err != nil {
		t.Fatalf("admin user not created: %v", err)
	}
	if !admin.Active {
		t.Error("seeded admin should be active")
	}
	if len(admin.Roles) != 3 {
		t.Errorf("admin roles = %d, want all 3", len(admin.Roles))
	}
}

func TestSeedNormalizesConfiguredAdminName(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "Boss")
	t.Setenv("ADMIN_EMAIL", "Boss@Pos.com")

	db := openTestDB(t)
	if err := Seed(db); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	// Login lowercases the submitted name, so the row must be stored
	// lowercase or the configured admin can never sign in.
	var admin models.User
	if err := db.Where("username = ?", "boss").First(&admin).Error; err != nil {
		t.Fatalf("admin not found under lowercase username: %v", err)
	}
	if admin.Email != "boss@pos.com" {
		t.Errorf("email = %q, want boss@pos.com", admin.Email)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := Seed(db); err != nil {
		t.Fatalf("first Seed failed: %v", err)
	}
	if err := Seed(db); err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}

	var roleCount, userCount int64
	db.Model(&models.Role{}).Count(&roleCount)
	db.Model(&models.User{}).Count(&userCount)
	if roleCount != 3 {
		t.Errorf("roles after double seed = %d, want 3", roleCount)
	}
	if userCount != 1 {
		t.Errorf("users after double seed = %d, want 1", userCount)
	}
}
