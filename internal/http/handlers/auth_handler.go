// Auth HTTP handlers.
//
// Endpoints for the Google OAuth sign-in flow:
//   - GET /login          (redirect to the provider consent screen)
//   - GET /auth/callback  (exchange the code, return a service token)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Login godoc
// @ID          login
// @Summary     Start sign-in
// @Description Redirects to the Google consent screen. An optional state value is round-tripped through the provider.
// @Tags        Auth
//
// @Param       state  query  string  false "Opaque value echoed back on the callback"
//
// @Success     307  {string}  string "Temporary Redirect"
// @Router      /login [get]
func (h *Handlers) Login(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, h.authSvc.LoginURL(c.Query("state")))
}

// AuthCallback godoc
// @ID          authCallback
// @Summary     OAuth callback
// @Description Exchanges the authorization code for a session: the signed-in user and a bearer token for subsequent API calls.
// @Tags        Auth
// @Produce     json
//
// @Param       code  query  string  true "Authorization code from the provider"
//
// @Success     200  {object}  services.Session
// @Failure     400  {object}  handlers.ErrorResponse  "Missing code"
// @Failure     401  {object}  handlers.ErrorResponse  "Exchange failed"
// @Router      /auth/callback [get]
func (h *Handlers) AuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code query parameter is required")
		return
	}

	sess, err := h.authSvc.HandleCallback(c.Request.Context(), code)
	if err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeAuthFailed, "sign-in failed")
		return
	}
	ok(c, http.StatusOK, sess)
}
