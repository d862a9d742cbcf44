package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"talenthub/internal/database"
)

// ProfileHandler 负责用户画像（技能/求职偏好）的读写。
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler 构造 ProfileHandler。
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type updateProfileRequest struct {
	Headline    *string        `json:"headline"`
	Skills      datatypes.JSON `json:"skills"`
	Preferences datatypes.JSON `json:"preferences"`
}

type profileResponse struct {
	ID          uint           `json:"id"`
	Username    string         `json:"username"`
	Role        string         `json:"role"`
	Headline    string         `json:"headline,omitempty"`
	Skills      datatypes.JSON `json:"skills,omitempty"`
	Preferences datatypes.JSON `json:"preferences,omitempty"`
}

// GetProfile 返回当前用户画像。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		Internal(c, "failed to query user")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// UpdateProfile 更新画像字段，缺省字段保持不变。
// 画像变化立刻影响后续匹配请求，无需额外失效操作。
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	updates := map[string]any{}
	if req.Headline != nil {
		updates["headline"] = *req.Headline
	}
	if len(req.Skills) > 0 {
		updates["skills"] = req.Skills
	}
	if len(req.Preferences) > 0 {
		updates["preferences"] = req.Preferences
	}
	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	ctx := c.Request.Context()
	result := h.db.WithContext(ctx).
		Model(&database.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		Internal(c, "failed to update profile")
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "user not found")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		Internal(c, "failed to reload user")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

func newProfileResponse(user database.User) profileResponse {
	return profileResponse{
		ID:          user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Headline:    user.Headline,
		Skills:      user.Skills,
		Preferences: user.Preferences,
	}
}
