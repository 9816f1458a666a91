package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkchat/internal/session"
)

const sessionContextKey = "linkchatSession"

// CookieName carries the signed session id between requests.
const CookieName = "linkchat_session"

// SessionFromContext returns the session attached by WithSession.
func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}

// WithSession resolves the caller's session from the signed cookie,
// creating a fresh one (and setting the cookie) when the cookie is
// missing, invalid or names a session this process no longer holds.
func WithSession(mgr *session.Manager, tokenCfg session.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(CookieName); err == nil {
			if claims, err := session.VerifyToken(raw, tokenCfg); err == nil {
				if sess, ok := mgr.Get(claims.SessionID); ok {
					c.Set(sessionContextKey, sess)
					c.Next()
					return
				}
			}
		}

		sess := mgr.Create()
		signed, err := session.CreateToken(sess.ID, tokenCfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Session creation failed"})
			return
		}
		c.SetCookie(CookieName, signed, int(tokenCfg.Expiry.Seconds()), "/", "", false, true)
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// RequireAuthenticated gates the chat surface behind a consumed magic
// link. In no-auth mode every session is authenticated on first contact.
func RequireAuthenticated(noAuth bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFromContext(c)
		if !ok {
			c.Redirect(http.StatusFound, "/magic-link/request")
			c.Abort()
			return
		}
		if noAuth && !sess.Authenticated() {
			sess.Authenticate()
		}
		if !sess.Authenticated() {
			c.Redirect(http.StatusFound, "/magic-link/request")
			c.Abort()
			return
		}
		c.Next()
	}
}
