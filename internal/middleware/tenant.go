package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	brandIDKey = "brand_id"
	actorIDKey = "actor_id"
)

// BrandMiddleware extracts and validates the brand context for tenant-scoped
// routes. Requests without a brand are rejected; there is no default brand
// fallback.
func BrandMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Brand-ID")
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "BRAND_REQUIRED",
					"message": "Brand ID is required. Include the X-Brand-ID header.",
				},
			})
			c.Abort()
			return
		}

		brandID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_BRAND_ID",
					"message": "X-Brand-ID must be a valid UUID.",
				},
			})
			c.Abort()
			return
		}

		c.Set(brandIDKey, brandID)
		c.Set(actorIDKey, c.GetHeader("X-User-ID"))
		c.Next()
	}
}

// ActorMiddleware records who is acting on admin routes, where no brand
// scope applies.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(actorIDKey, c.GetHeader("X-User-ID"))
		c.Next()
	}
}

// GetBrandID retrieves the brand ID set by BrandMiddleware.
func GetBrandID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(brandIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetActorID retrieves the acting user's ID, if any.
func GetActorID(c *gin.Context) string {
	return c.GetString(actorIDKey)
}
