package web

import (
	"net/http"

	"github.com/deemkeen/kinship/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(err error) int {
	switch domain.ClassOf(err) {
	case domain.ClassValidation:
		return http.StatusBadRequest
	case domain.ClassAuth:
		return http.StatusUnauthorized
	case domain.ClassNotFound:
		return http.StatusNotFound
	case domain.ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// replyErr writes ERR:<code>. Uncoded errors are logged and sent as ERR:Internal.
func replyErr(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.String(status, "ERR:"+domain.Code(err))
}

// replyOK writes OK, or OK:<code> when code is set.
func replyOK(c *gin.Context, code string) {
	if code == "" {
		c.String(http.StatusOK, "OK")
		return
	}
	c.String(http.StatusOK, "OK:"+code)
}
