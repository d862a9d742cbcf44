package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"talenthub/internal/api/middleware"
	"talenthub/internal/auth"
	"talenthub/internal/database"
)

// AuthHandler 处理注册与登录。
type AuthHandler struct {
	db                    *gorm.DB
	authService           *auth.AuthService
	redis                 redis.UniversalClient
	logger                *slog.Logger
	loginRateLimitPerHour int
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, loginRateLimitPerHour int) *AuthHandler {
	if loginRateLimitPerHour <= 0 {
		loginRateLimitPerHour = 10
	}
	return &AuthHandler{
		db:                    db,
		authService:           authService,
		redis:                 redisClient,
		logger:                logger,
		loginRateLimitPerHour: loginRateLimitPerHour,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=student recruiter"`
}

// Register 创建新用户账号，默认角色为 student。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(
		slog.String("username", req.Username),
	)

	var existing database.User
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&existing).Error; err == nil {
		logger.Info("register conflict: user already exists")
		Conflict(c, "username already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	role := req.Role
	if role == "" {
		role = database.RoleStudent
	}

	user := database.User{
		Username:     req.Username,
		PasswordHash: hashed,
		Role:         role,
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("role", user.Role),
	)
	c.Status(http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Role         string `json:"role"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(
		slog.String("username", req.Username),
	)

	// 速率限制：每 IP+用户名 每小时 N 次。
	rateKey := "rate:login:" + ip + ":" + strings.ToLower(req.Username) + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if count > int64(h.loginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		logger.Error("login lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login rejected: bad credentials")
		Unauthorized(c)
		return
	}

	pair, err := h.authService.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.authService.AccessTokenTTL().Seconds()),
		Role:         user.Role,
	})
}

const refreshTokenBlacklistKeyPrefix = "auth:refresh:revoked:"

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 用刷新令牌换发新令牌对，旧刷新令牌作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(req.RefreshToken)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" || claims.ID == "" || claims.ExpiresAt == nil {
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		Unauthorized(c)
		return
	}

	pair, err := h.authService.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 旋转旧刷新令牌，防止重复使用。
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt.Time); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.authService.AccessTokenTTL().Seconds()),
		Role:         user.Role,
	})
}

// Logout 将刷新令牌加入黑名单。
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	claims, err := h.authService.ValidateToken(req.RefreshToken)
	if err != nil || claims.TokenType != "refresh" || claims.ID == "" || claims.ExpiresAt == nil {
		// 无效令牌无需撤销
		c.Status(http.StatusNoContent)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(c.Request.Context(), key, claims.ExpiresAt.Time); err != nil {
		h.loggerFromContext(c).Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	return h.logger
}
