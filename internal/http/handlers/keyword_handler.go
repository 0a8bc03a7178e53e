// Keyword HTTP handlers.
//
// Endpoints for the per-user exclusion keyword list the revision engine must
// avoid:
//   - GET  /keywords  (list)
//   - POST /keywords  (merge new keywords into the list)
//   - PUT  /keywords  (replace the list)
//
// The background worker reads this list fresh at processing time, so changes
// apply to jobs that are already queued.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cspark/dearai-backend/internal/services"
)

// KeywordsRequest is the JSON payload for adding or replacing keywords.
type KeywordsRequest struct {
	Keywords []string `json:"keywords" binding:"required" example:"asap,urgent"`
}

// KeywordsResponse wraps the stored keyword list.
type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// ListKeywords godoc
// @ID          listKeywords
// @Summary     List exclusion keywords
// @Description Returns the current user's exclusion keyword list.
// @Tags        Keywords
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  handlers.KeywordsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /keywords [get]
func (h *Handlers) ListKeywords(c *gin.Context) {
	kw, err := h.kwSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		failKeyword(c, err)
		return
	}
	ok(c, http.StatusOK, KeywordsResponse{Keywords: kw})
}

// AddKeywords godoc
// @ID          addKeywords
// @Summary     Add exclusion keywords
// @Description Merges the given keywords into the user's list; duplicates and blanks are dropped.
// @Tags        Keywords
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.KeywordsRequest  true  "Keywords to add"
//
// @Success     200  {object}  handlers.KeywordsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /keywords [post]
func (h *Handlers) AddKeywords(c *gin.Context) {
	var req KeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "keywords array is required")
		return
	}

	kw, err := h.kwSvc.Add(c.Request.Context(), userID(c), req.Keywords)
	if err != nil {
		failKeyword(c, err)
		return
	}
	ok(c, http.StatusOK, KeywordsResponse{Keywords: kw})
}

// ReplaceKeywords godoc
// @ID          replaceKeywords
// @Summary     Replace exclusion keywords
// @Description Overwrites the user's exclusion keyword list.
// @Tags        Keywords
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.KeywordsRequest  true  "New keyword list"
//
// @Success     200  {object}  handlers.KeywordsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /keywords [put]
func (h *Handlers) ReplaceKeywords(c *gin.Context) {
	var req KeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "keywords array is required")
		return
	}

	kw, err := h.kwSvc.Replace(c.Request.Context(), userID(c), req.Keywords)
	if err != nil {
		failKeyword(c, err)
		return
	}
	ok(c, http.StatusOK, KeywordsResponse{Keywords: kw})
}

// failKeyword maps keyword-service errors onto the HTTP error envelope.
func failKeyword(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUserNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
}
