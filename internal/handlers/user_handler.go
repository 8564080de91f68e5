package handlers

import (
	"net/http"
	"strings"

	"go-pos-api/internal/database"
	"go-pos-api/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type UserCreateRequest struct {
	Username string   `json:"username" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Roles    []string `json:"roles" binding:"required,min=1"`
	Active   *bool    `json:"active"`
}

type UserUpdateRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
	Active   *bool    `json:"active"`
}

// UserDetail is the admin view of an account: role names flattened.
type UserDetail struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Active   bool     `json:"active"`
	Roles    []string `json:"roles"`
}

func userDetail(u *models.User) UserDetail {
	return UserDetail{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Active:   u.Active,
		Roles:    u.RoleNames(),
	}
}

// resolveRoles maps role names onto role rows, failing on unknown names.
func resolveRoles(names []string) ([]models.Role, bool) {
	roles := make([]models.Role, 0, len(names))
	for _, name := range names {
		var role models.Role
		if err := database.DB.Where("name = ?", name).First(&role).Error; err != nil {
			return nil, false
		}
		roles = append(roles, role)
	}
	return roles, true
}

func GetUsers(c *gin.Context) {
	var users []models.User
	if err := database.DB.Preload("Roles").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	details := make([]UserDetail, 0, len(users))
	for i := range users {
		details = append(details, userDetail(&users[i]))
	}
	c.JSON(http.StatusOK, details)
}

func GetUser(c *gin.Context) {
	var user models.User
	if err := database.DB.Preload("Roles").First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, userDetail(&user))
}

func GetRoles(c *gin.Context) {
	var names []string
	err := database.DB.Model(&models.Role{}).Pluck("name", &names).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch roles"})
		return
	}
	c.JSON(http.StatusOK, names)
}

func CreateUser(c *gin.Context) {
	var input UserCreateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	username := strings.ToLower(input.Username)
	email := strings.ToLower(input.Email)

	var count int64
	if err := database.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already in use"})
		return
	}
	if err := database.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
		return
	}

	roles, ok := resolveRoles(input.Roles)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more roles do not exist"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Active:       active,
		Roles:        roles,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, userDetail(&user))
}

// UpdateUser changes email, password, active flag and/or role set.
// Role changes only affect tokens issued after the user's next login.
func UpdateUser(c *gin.Context) {
	var user models.User
	if err := database.DB.Preload("Roles").First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var input UserUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if input.Email != "" {
		email := strings.ToLower(input.Email)
		var count int64
		err := database.DB.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
			return
		}
		user.Email = email
	}

	if input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user.PasswordHash = string(hashed)
	}

	if input.Active != nil {
		user.Active = *input.Active
	}

	if err := database.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	if input.Roles != nil {
		roles, ok := resolveRoles(input.Roles)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "One or more roles do not exist"})
			return
		}
		if err := database.DB.Model(&user).Association("Roles").Replace(roles); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update roles"})
			return
		}
		user.Roles = roles
	}

	c.JSON(http.StatusOK, userDetail(&user))
}

func DeleteUser(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var count int64
	database.DB.Model(&models.Sale{}).Where("user_id = ?", user.ID).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User has processed sales; deactivate the account instead"})
		return
	}

	if err := database.DB.Select("Roles").Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
