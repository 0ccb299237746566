package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hirehub/internal/api/middleware"
	"hirehub/internal/auth"
	"hirehub/internal/database"
	"hirehub/internal/identity"
)

// AuthHandler serves registration, login, federated login, profile and
// admin user management.
type AuthHandler struct {
	db                    *gorm.DB
	authService           *auth.Service
	identityClient        *identity.Client
	redis                 redis.UniversalClient
	logger                *slog.Logger
	loginRateLimitPerHour int
	loginLockThreshold    int
	loginLockTTL          time.Duration
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(db *gorm.DB, authService *auth.Service, identityClient *identity.Client, redisClient redis.UniversalClient, logger *slog.Logger, loginRateLimitPerHour, loginLockThreshold int, loginLockTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		db:                    db,
		authService:           authService,
		identityClient:        identityClient,
		redis:                 redisClient,
		logger:                logger,
		loginRateLimitPerHour: loginRateLimitPerHour,
		loginLockThreshold:    loginLockThreshold,
		loginLockTTL:          loginLockTTL,
	}
}

type registerRequest struct {
	Name        string   `json:"name" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=6,max=72"`
	Role        string   `json:"role"`
	Department  string   `json:"department"`
	Year        string   `json:"year"`
	CGPA        *float64 `json:"cgpa"`
	Skills      string   `json:"skills"`
	Resume      string   `json:"resume"`
	CompanyName string   `json:"companyName"`
}

// publicUser is the compact account view returned alongside tokens.
func publicUser(u *database.User) gin.H {
	out := gin.H{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"role":   u.Role,
		"status": u.Status,
	}
	if u.Avatar != "" {
		out["avatar"] = u.Avatar
	}
	return out
}

// Register creates a new account. Every role starts active and gets a token
// right away.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		logger.Info("register conflict: email already taken")
		BadRequest(c, "User already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	role := req.Role
	switch role {
	case database.RoleJobSeeker, database.RoleRecruiter, database.RoleAdmin:
	default:
		role = database.RoleJobSeeker
	}

	user := database.User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    hashed,
		Role:        role,
		Status:      database.StatusActive,
		Department:  req.Department,
		Year:        req.Year,
		CGPA:        req.CGPA,
		Skills:      req.Skills,
		Resume:      req.Resume,
		CompanyName: req.CompanyName,
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)), slog.String("role", user.Role))
	c.JSON(http.StatusCreated, gin.H{
		"user":  publicUser(&user),
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a token. Accounts that are pending
// or deactivated are refused even with the right password.
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(req.Email)
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	// Per IP+email per hour. Counter failures never block logins.
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if h.loginRateLimitPerHour > 0 && count > int64(h.loginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many login attempts"})
		return
	}

	lockKey := "lock:login:" + email
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "Account temporarily locked"})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			_ = h.incrementLoginFail(c, email)
			Unauthorized(c, "Invalid email or password")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.Password) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		_ = h.incrementLoginFail(c, email)
		Unauthorized(c, "Invalid email or password")
		return
	}

	if user.Status == database.StatusPending {
		Unauthorized(c, "Account is pending approval")
		return
	}
	if user.Status == database.StatusDeactivated {
		Unauthorized(c, "Account is deactivated")
		return
	}

	_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  publicUser(&user),
		"token": token,
	})
}

type googleLoginRequest struct {
	Token string `json:"token" binding:"required"`
	Role  string `json:"role"`
}

// GoogleLogin exchanges a provider access token for profile claims, then
// logs in an existing account or registers a fresh one.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	info, err := h.identityClient.FetchUserInfo(ctx, req.Token)
	if err != nil {
		logger.Error("google userinfo exchange failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Google authentication failed",
			"error":   err.Error(),
		})
		return
	}

	var user database.User
	err = h.db.WithContext(ctx).
		Where("google_id = ?", info.Sub).
		Or("email = ?", info.Email).
		First(&user).Error

	switch {
	case err == nil:
		// Existing account: link the federated id if it was a local signup.
		updates := map[string]any{}
		if user.GoogleID == nil {
			updates["google_id"] = info.Sub
			if user.Avatar == "" && info.Picture != "" {
				updates["avatar"] = info.Picture
			}
		}
		if len(updates) > 0 {
			if err := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
				logger.Error("link google id failed", slog.Any("error", err))
				c.JSON(http.StatusInternalServerError, gin.H{
					"message": "Google authentication failed",
					"error":   err.Error(),
				})
				return
			}
			sub := info.Sub
			user.GoogleID = &sub
			if v, ok := updates["avatar"]; ok {
				user.Avatar = v.(string)
			}
		}

		if user.Status == database.StatusPending {
			Unauthorized(c, "Account is pending approval")
			return
		}
		if user.Status == database.StatusDeactivated {
			Unauthorized(c, "Account is deactivated")
			return
		}

		token, err := h.authService.GenerateToken(user.ID)
		if err != nil {
			logger.Error("generate token failed", slog.Any("error", err))
			Internal(c, "Server error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": publicUser(&user), "token": token})

	case errors.Is(err, gorm.ErrRecordNotFound):
		// First federated login: create an active account with an unusable
		// random local password.
		hashed, err := h.authService.HashPassword(uuid.NewString())
		if err != nil {
			logger.Error("hash random password failed", slog.Any("error", err))
			Internal(c, "Server error")
			return
		}

		sub := info.Sub
		user = database.User{
			Name:     info.Name,
			Email:    info.Email,
			Password: hashed,
			Role:     database.NormalizeRole(req.Role),
			Status:   database.StatusActive,
			GoogleID: &sub,
			Avatar:   info.Picture,
		}
		if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
			logger.Error("create federated user failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "Google authentication failed",
				"error":   err.Error(),
			})
			return
		}

		token, err := h.authService.GenerateToken(user.ID)
		if err != nil {
			logger.Error("generate token failed", slog.Any("error", err))
			Internal(c, "Server error")
			return
		}
		logger.Info("federated user registered", slog.Uint64("user_id", uint64(user.ID)))
		c.JSON(http.StatusCreated, gin.H{"user": publicUser(&user), "token": token})

	default:
		logger.Error("google login lookup failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Google authentication failed",
			"error":   err.Error(),
		})
	}
}

// Me returns the caller's full profile minus the password hash.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := resolveCaller(c.Request.Context(), h.db, c)
	if err != nil {
		if errors.Is(err, errUserGone) {
			NotFound(c, "User not found")
			return
		}
		Internal(c, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type updateProfileRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Department  string   `json:"department"`
	Year        string   `json:"year"`
	CGPA        *float64 `json:"cgpa"`
	Skills      string   `json:"skills"`
	Resume      string   `json:"resume"`
	CompanyName string   `json:"companyName"`
}

// UpdateProfile partially updates the caller's profile and re-issues a token.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	user, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		if errors.Is(err, errUserGone) {
			NotFound(c, "User not found")
			return
		}
		Internal(c, "Server error")
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Password != "" {
		hashed, err := h.authService.HashPassword(req.Password)
		if err != nil {
			logger.Error("hash password failed", slog.Any("error", err))
			Internal(c, "Server error")
			return
		}
		user.Password = hashed
	}
	if req.Department != "" {
		user.Department = req.Department
	}
	if req.Year != "" {
		user.Year = req.Year
	}
	if req.CGPA != nil {
		user.CGPA = req.CGPA
	}
	if req.Skills != "" {
		user.Skills = req.Skills
	}
	if req.Resume != "" {
		user.Resume = req.Resume
	}
	if req.CompanyName != "" {
		user.CompanyName = req.CompanyName
	}

	if err := h.db.WithContext(ctx).Save(user).Error; err != nil {
		logger.Error("update profile failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	token, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// ListUsers returns every account. Admin only.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}
	if caller.Role != database.RoleAdmin {
		Forbidden(c, "Not authorized as an admin")
		return
	}

	var users []database.User
	if err := h.db.WithContext(ctx).Find(&users).Error; err != nil {
		h.loggerFromContext(c).Error("list users failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

type updateUserStatusRequest struct {
	Status string `json:"status"`
}

// UpdateUserStatus changes an account's status. Admin only.
func (h *AuthHandler) UpdateUserStatus(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}
	if caller.Role != database.RoleAdmin {
		Forbidden(c, "Not authorized as an admin")
		return
	}

	var req updateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	targetID, ok := idParam(c, "id")
	if !ok {
		NotFound(c, "User not found")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found")
			return
		}
		Internal(c, "Server error")
		return
	}

	if req.Status != "" {
		user.Status = req.Status
	}
	if err := h.db.WithContext(ctx).Save(&user).Error; err != nil {
		h.loggerFromContext(c).Error("update user status failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// DeleteUser removes an account. Admin only.
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}
	if caller.Role != database.RoleAdmin {
		Forbidden(c, "Not authorized as an admin")
		return
	}

	targetID, ok := idParam(c, "id")
	if !ok {
		NotFound(c, "User not found")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "User not found")
			return
		}
		Internal(c, "Server error")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&user).Error; err != nil {
		h.loggerFromContext(c).Error("delete user failed", slog.Any("error", err))
		Internal(c, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User removed"})
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) incrementLoginFail(c *gin.Context, email string) error {
	ctx := c.Request.Context()
	failKey := "lock:login:fail:" + email
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.loginLockTTL).Err()
	}
	if h.loginLockThreshold > 0 && count >= int64(h.loginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+email, "1", h.loginLockTTL).Err()
	}
	return nil
}
