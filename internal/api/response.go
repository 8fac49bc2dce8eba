package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvstudio/internal/errcode"
)

// 统一响应信封：成功为 {success,message,result}，
// 失败为 {success,message,code} 并在校验失败时附带 errors 字段。

func Success(c *gin.Context, status int, message string, result any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"result":  result,
	})
}

func Fail(c *gin.Context, status, code int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"code":    code,
	})
}

// ValidationFail 返回 422 与按字段路径键控的错误表。
func ValidationFail(c *gin.Context, errs map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"message": "The given data was invalid.",
		"code":    errcode.ValidationFailed,
		"errors":  errs,
	})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "Unauthenticated.",
		"code":    errcode.Unauthorized,
	})
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, errcode.Unauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, errcode.Forbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, errcode.NotFound, message)
}

func Internal(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, errcode.SystemError, message)
}
