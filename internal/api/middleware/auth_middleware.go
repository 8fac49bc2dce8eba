package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cvstudio/internal/auth"
	"cvstudio/internal/errcode"
)

// AccessTokenBlacklistKeyPrefix 是已注销访问令牌在 Redis 中的键前缀。
const AccessTokenBlacklistKeyPrefix = "auth:access:blacklist:"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "Unauthenticated.",
		"code":    errcode.Unauthorized,
	})
}

// AuthMiddleware 校验访问令牌并将 userID 与 userRole 注入上下文。
// 注销过的令牌通过 Redis 黑名单拒绝。
func AuthMiddleware(authService *auth.AuthService, redisClient redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != "access" {
			abortUnauthorized(c)
			return
		}

		if redisClient != nil && claims.ID != "" {
			key := AccessTokenBlacklistKeyPrefix + claims.ID
			if err := redisClient.Get(c.Request.Context(), key).Err(); err == nil {
				abortUnauthorized(c)
				return
			} else if !errors.Is(err, redis.Nil) {
				LoggerFromContext(c).Error("access token blacklist lookup failed", "error", err)
			}
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Set("tokenID", claims.ID)
		c.Set("tokenClaims", claims)
		c.Next()
	}
}

// OptionalAuth 在公开端点上解析凭据：令牌有效则注入用户身份，
// 缺失或无效时放行为匿名请求，从不中断。
func OptionalAuth(authService *auth.AuthService, redisClient redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil || claims.TokenType != "access" {
			c.Next()
			return
		}

		if redisClient != nil && claims.ID != "" {
			key := AccessTokenBlacklistKeyPrefix + claims.ID
			if err := redisClient.Get(c.Request.Context(), key).Err(); err == nil {
				c.Next()
				return
			}
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Set("tokenID", claims.ID)
		c.Set("tokenClaims", claims)
		c.Next()
	}
}

// AdminOnly 在 AuthMiddleware 之后使用，仅放行管理员角色。
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("userRole")
		if role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Administrator access required.",
				"code":    errcode.Forbidden,
			})
			return
		}
		c.Next()
	}
}
