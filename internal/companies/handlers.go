package companies

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchHandler serves GET /api/companies?q= for the signed-in user
func SearchHandler(pool *Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strconv.FormatUint(uint64(c.GetUint("user_id")), 10)
		searcher := pool.Get(key)

		results, err := searcher.Query(c.Request.Context(), c.Query("q"))
		if err != nil {
			if errors.Is(err, ErrSuperseded) {
				// A newer query from the same user replaced this one
				c.JSON(http.StatusConflict, gin.H{"error": "superseded"})
				return
			}
			if c.Request.Context().Err() != nil {
				c.Status(http.StatusNoContent)
				return
			}
			slog.Error("Company lookup failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "company lookup failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"companies": results})
	}
}
