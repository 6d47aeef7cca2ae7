package apperr

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Abort はエラーをコンテキストに登録し、以降のハンドラーを中断します。
// レスポンスの書き出しは ErrorHandler が一度だけ行います。
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler はパイプライン最終段のエラーレスポンダーです。
// 登録されたエラーを分類に従って HTTP レスポンスへ変換します。
// debug が false の場合、内部エラーの詳細はレスポンスに含めません。
func ErrorHandler(logger *zap.Logger, debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *Error
		if !errors.As(err, &appErr) {
			appErr = Internal(err)
		}

		if appErr.Status >= 500 {
			logger.Error("unhandled error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		if debug && appErr.Status >= 500 && appErr.cause != nil {
			body["detail"] = appErr.cause.Error()
		}

		c.JSON(appErr.Status, body)
	}
}
