package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
)

// respondError maps domain errors onto HTTP status codes. Validation problems
// become 400s, business rejections carry their own status, everything else is
// a 500 with the message hidden from the client.
func respondError(c *gin.Context, err error) {
	var vErr *errs.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": vErr.Message,
			"field": vErr.Field,
		})
		return
	}

	var bErr *errs.BusinessError
	if errors.As(err, &bErr) {
		status := bErr.StatusCode
		if status == 0 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"error": bErr.Message,
			"code":  bErr.Code,
		})
		return
	}

	var tErr *errs.TransportError
	if errors.As(err, &tErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
