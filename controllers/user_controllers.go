package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/policy"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type UserController struct {
	DB     *gorm.DB
	Policy *policy.Engine
}

func NewUserController(db *gorm.DB, engine *policy.Engine) *UserController {
	return &UserController{DB: db, Policy: engine}
}

var errInvalidCredentials = apperror.New(apperror.CodeUnauthorized, "invalid credentials")

// Register user baru. Without an authenticated caller it only bootstraps the
// very first account; afterwards the route sits behind users:write.
func (uc *UserController) Register(c *gin.Context) {
	_, authed := c.Get(middlewares.CtxRole)
	if !authed {
		var existing int64
		if err := uc.DB.Model(&models.User{}).Count(&existing).Error; err != nil {
			utils.RespondDomainError(c, apperror.Internal("count users", err))
			return
		}
		if existing > 0 {
			utils.RespondDomainError(c, apperror.New(apperror.CodeForbidden,
				"registration requires an account with "+string(policy.UsersWrite)))
			return
		}
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"` // admin, manager, cashier, waiter, chef
	}
	if !bindJSON(c, &req) {
		return
	}
	role := strings.ToLower(req.Role)
	if !uc.Policy.KnownRole(role) {
		utils.RespondDomainError(c, apperror.Validation("unknown role %q", req.Role))
		return
	}
	if !authed && role != policy.RoleAdmin {
		utils.RespondDomainError(c, apperror.Validation("the first account must be an %s", policy.RoleAdmin))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var taken int64
	if err := uc.DB.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		utils.RespondDomainError(c, apperror.Internal("check email", err))
		return
	}
	if taken > 0 {
		utils.RespondDomainError(c, apperror.Conflict("email %s is already registered", email))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondDomainError(c, apperror.Internal("hash password", err))
		return
	}
	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondDomainError(c, apperror.Conflict("email %s is already registered", email))
			return
		}
		utils.RespondDomainError(c, apperror.Internal("create user", err))
		return
	}

	utils.InfoLogger.Infof("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
	})
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	var user models.User
	err := uc.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondDomainError(c, errInvalidCredentials)
		return
	}
	if err != nil {
		utils.RespondDomainError(c, apperror.Internal("load user", err))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondDomainError(c, errInvalidCredentials)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondDomainError(c, apperror.Internal("generate token", err))
		return
	}

	utils.InfoLogger.WithField("user_id", user.ID).Infof("Login successful for %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":        token,
		"user_role":    user.Role,
		"capabilities": uc.Policy.Capabilities(user.Role),
	})
}

// GetProfile -> memeriksa user dari JWT
func (uc *UserController) GetProfile(c *gin.Context) {
	userID, ok := c.Get(middlewares.CtxUserID)
	id, isUint := userID.(uint)
	if !ok || !isUint {
		utils.RespondDomainError(c, apperror.New(apperror.CodeUnauthorized, "user id not found in context"))
		return
	}

	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondDomainError(c, apperror.NotFound("user %d not found", id))
			return
		}
		utils.RespondDomainError(c, apperror.Internal("load user", err))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", user)
}
