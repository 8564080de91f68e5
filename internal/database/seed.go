package database

import (
	"log"
	"os"
	"strings"

	"go-pos-api/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var defaultRoles = []models.Role{
	{Name: "Admin", Description: "Full access, user administration"},
	{Name: "POS", Description: "Register access, can process sales"},
	{Name: "User", Description: "Read-only access"},
}

// Seed creates the fixed role set and the initial admin account.
// Safe to run on every boot: existing rows are left alone.
func Seed(db *gorm.DB) error {
	for _, role := range defaultRoles {
		var existing models.Role
		err := db.Where("name = ?", role.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&role).Error; err != nil {
			return err
		}
		log.Printf("Created role %q", role.Name)
	}

	// Stored lowercase so the account matches the login lookup, which
	// normalizes the submitted username the same way.
	adminUsername := strings.ToLower(os.Getenv("ADMIN_USERNAME"))
	if adminUsername == "" {
		adminUsername = "admin"
	}
	adminEmail := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	if adminEmail == "" {
		adminEmail = "admin@pos.com"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123*"
	}

	var admin models.User
	err := db.Where("username = ?", adminUsername).First(&admin).Error
	if err == nil {
		return nil // already seeded
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var roles []models.Role
	if err := db.Find(&roles).Error; err != nil {
		return err
	}

	admin = models.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: string(hashed),
		Active:       true,
		Roles:        roles, // admin gets every role
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Created admin user %q", adminUsername)
	return nil
}
