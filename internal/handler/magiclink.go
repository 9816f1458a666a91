package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"linkchat/internal/middleware"
	"linkchat/internal/session"
	"linkchat/internal/token"
)

// Validity windows, in minutes, matching the two issuance flows.
const (
	apiTokenValidMinutes  = 10000
	formTokenValidMinutes = 60
)

// MagicLinkHandler issues and consumes one-time login links, and ends
// sessions on logout.
type MagicLinkHandler struct {
	Issuer   *token.Issuer
	Sessions *session.Manager
	APIKey   string
	Log      zerolog.Logger
}

// Request issues a fresh link over the JSON API. It is guarded by a
// static bearer credential, not by a session.
func (h *MagicLinkHandler) Request(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+h.APIKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: missing or invalid API key"})
		return
	}

	tok, err := h.Issuer.Issue(apiTokenValidMinutes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     tok.Value,
		"magicLink": "/magic-link/consume?token=" + tok.Value,
		"expiresAt": tok.ExpiresAt,
	})
}

// RequestForm is the browser-facing issuance flow.
func (h *MagicLinkHandler) RequestForm(c *gin.Context) {
	tok, err := h.Issuer.Issue(formTokenValidMinutes)
	if err != nil {
		c.Redirect(http.StatusFound, "/magic-link/request?error="+url.QueryEscape(err.Error()))
		return
	}
	link := "/magic-link/consume?token=" + tok.Value
	c.Redirect(http.StatusFound, "/magic-link/request?success="+url.QueryEscape("Magic link generated: "+link))
}

// Consume validates and burns the token, marks the caller's session
// authenticated and sends it to the chat view. Every outcome ends in a
// redirect; expired tokens are swept afterwards regardless.
func (h *MagicLinkHandler) Consume(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	_, err := h.Issuer.ValidateAndConsume(c.Query("token"), sess.ID)
	if err != nil {
		h.Issuer.Sweep()
		c.Redirect(http.StatusFound, "/magic-link/request?error="+url.QueryEscape(err.Error()))
		return
	}

	sess.Authenticate()
	h.Log.Info().Str("sessionId", sess.ID).Msg("magic link consumed")
	h.Issuer.Sweep()
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Logout destroys the session and everything it owns.
func (h *MagicLinkHandler) Logout(c *gin.Context) {
	if sess, ok := middleware.SessionFromContext(c); ok {
		h.Sessions.Invalidate(sess.ID)
	}
	c.SetCookie(middleware.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/magic-link/request")
}
