// Contact HTTP handlers.
//
// This file exposes REST endpoints for the user's address book:
//   - POST   /contacts         (create)
//   - GET    /contacts         (list)
//   - GET    /contacts/groups  (distinct group names)
//   - PATCH  /contacts/{id}    (partial update)
//   - DELETE /contacts/{id}    (remove)
//
// Contacts feed the revision pipeline: a submitted recipient is matched
// against them by exact email to supply recipient context to the engine.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cspark/dearai-backend/internal/services"
)

// CreateContactRequest is the JSON payload for creating a contact.
type CreateContactRequest struct {
	// Email is the contact's address; the exact-match key for recipient resolution.
	Email string `json:"email" binding:"required,email" example:"jane@corp.example"`
	// Name is the display name used as recipient context.
	Name string `json:"name" binding:"required,min=1,max=255" example:"Jane Doe"`
	// Group optionally buckets the contact (e.g. "engineering").
	Group string `json:"group" example:"engineering"`
}

// UpdateContactRequest is the JSON payload for partially updating a contact.
// Absent fields are left unchanged.
type UpdateContactRequest struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
	Group *string `json:"group,omitempty"`
}

// CreateContact godoc
// @ID          createContact
// @Summary     Create a contact
// @Description Adds an address-book entry for the current user.
// @Tags        Contacts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateContactRequest  true  "Contact payload"
//
// @Success     201  {object}  domain.Contact
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [post]
func (h *Handlers) CreateContact(c *gin.Context) {
	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and name are required")
		return
	}

	ct, err := h.contactSvc.Create(c.Request.Context(), userID(c), req.Email, req.Name, req.Group)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, ct)
}

// ListContacts godoc
// @ID          listContacts
// @Summary     List contacts
// @Description Returns all of the user's contacts, ordered by name.
// @Tags        Contacts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {array}   domain.Contact
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	items, err := h.contactSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// ListContactGroups godoc
// @ID          listContactGroups
// @Summary     List contact groups
// @Description Returns the distinct non-empty group names across the user's contacts.
// @Tags        Contacts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {array}   string
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/groups [get]
func (h *Handlers) ListContactGroups(c *gin.Context) {
	groups, err := h.contactSvc.Groups(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, groups)
}

// UpdateContact godoc
// @ID          updateContact
// @Summary     Update a contact
// @Description Applies a partial update to a contact owned by the current user.
// @Tags        Contacts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Contact ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateContactRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Contact
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [patch]
func (h *Handlers) UpdateContact(c *gin.Context) {
	contactID := c.Param("id")
	if _, err := uuid.Parse(contactID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id must be a UUID")
		return
	}

	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name must not be blank")
		return
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email must not be blank")
		return
	}

	ct, err := h.contactSvc.Update(c.Request.Context(), userID(c), contactID, services.ContactUpdate{
		Name:  req.Name,
		Email: req.Email,
		Group: req.Group,
	})
	if err != nil {
		if errors.Is(err, services.ErrContactNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ct)
}

// DeleteContact godoc
// @ID          deleteContact
// @Summary     Delete a contact
// @Description Removes a contact owned by the current user.
// @Tags        Contacts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Contact ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [delete]
func (h *Handlers) DeleteContact(c *gin.Context) {
	contactID := c.Param("id")
	if _, err := uuid.Parse(contactID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id must be a UUID")
		return
	}

	if err := h.contactSvc.Delete(c.Request.Context(), userID(c), contactID); err != nil {
		if errors.Is(err, services.ErrContactNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
