package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hirehub/internal/database"
)

// idParam parses a numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	default:
		return 0, false
	}
}

var errUserGone = errors.New("token subject no longer exists")

// resolveCaller loads the authenticated caller's user row. The token was
// already validated by the middleware; a missing row means the account was
// deleted after the token was issued.
func resolveCaller(ctx context.Context, db *gorm.DB, c *gin.Context) (*database.User, error) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return nil, errUserGone
	}

	var user database.User
	if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserGone
		}
		return nil, err
	}
	return &user, nil
}
