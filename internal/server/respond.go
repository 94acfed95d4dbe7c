package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kvistad/manhwad/internal/fetch"
	"github.com/kvistad/manhwad/internal/scrape"
)

// respondError maps pipeline failures onto transport statuses: fetch
// timeouts become 504, every other upstream failure (network, bad status,
// bot challenge, layout change) becomes 502.
func respondError(c *gin.Context, err error) {
	if fe, ok := fetch.IsFetchError(err); ok {
		status := http.StatusBadGateway
		code := "fetch_failed"

		switch {
		case fe.Timeout():
			status = http.StatusGatewayTimeout
			code = "fetch_timeout"
		case fe.Kind == fetch.KindChallenge:
			code = "bot_challenge"
		}

		c.JSON(status, gin.H{"error": code, "message": fe.Error()})
		return
	}

	if pe, ok := scrape.IsParseError(err); ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_layout_changed", "message": pe.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": message})
}
