package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/token"
)

type LiveKitHandler struct {
	Tokens *token.Service
}

type tokenRequest struct {
	RoomID   string `json:"roomId"`
	Identity string `json:"identity"`
}

// Create mints a room access token. Validation failures stay with this
// request; nothing here can take the relay down.
func (h *LiveKitHandler) Create(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" || req.Identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and identity are required"})
		return
	}

	if !h.Tokens.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "missing LiveKit configuration: LIVEKIT_URL, LIVEKIT_API_KEY, LIVEKIT_API_SECRET",
		})
		return
	}

	tok, err := h.Tokens.Mint(req.RoomID, req.Identity)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("token mint failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tok, "url": h.Tokens.URL()})
}

// Usage answers browsers that open the endpoint with a GET.
func (h *LiveKitHandler) Usage(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "use POST with a JSON body",
		"example": gin.H{
			"method": "POST",
			"url":    "/livekit-token",
			"body":   gin.H{"roomId": "sala-prueba", "identity": "juan"},
		},
	})
}
