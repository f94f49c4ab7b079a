package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xemwebe/finql/internal/errors"
	"github.com/xemwebe/finql/internal/services"
)

// maxObjectSize bounds the body accepted by PutObject.
const maxObjectSize = 1 << 20

// ObjectHandler exposes the keyed JSON document store.
type ObjectHandler struct {
	objectService services.ObjectServicer
}

// NewObjectHandler creates a new ObjectHandler.
func NewObjectHandler(objectService services.ObjectServicer) *ObjectHandler {
	return &ObjectHandler{objectService: objectService}
}

// GetObject returns the stored document exactly as it was written.
// @Summary     Get object
// @Description Get a stored JSON document exactly as it was written
// @Tags        objects
// @Produce     json
// @Param       id path string true "Object ID"
// @Success     200 {object} interface{} "Stored document"
// @Failure     404 {object} ErrorResponse "Object not found"
// @Router      /objects/{id} [get]
func (h *ObjectHandler) GetObject(c *gin.Context) {
	raw, err := h.objectService.GetRawObject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// PutObject stores the request body under the id in the path, replacing any
// existing document.
// @Summary     Store object
// @Description Store the JSON request body under the ID, replacing any previous document
// @Tags        objects
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Object ID"
// @Param       request body object true "JSON document"
// @Success     200 {object} map[string]string "Object stored"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /objects/{id} [put]
func (h *ObjectHandler) PutObject(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxObjectSize+1))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if len(raw) > maxObjectSize {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Object is too large"))
		return
	}

	if err := h.objectService.PutRawObject(c.Request.Context(), c.Param("id"), raw); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

// DeleteObject removes a stored document.
// @Summary     Delete object
// @Description Delete a stored JSON document
// @Tags        objects
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Object ID"
// @Success     200 {object} map[string]string "Object deleted"
// @Failure     404 {object} ErrorResponse "Object not found"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Writes disabled"
// @Router      /objects/{id} [delete]
func (h *ObjectHandler) DeleteObject(c *gin.Context) {
	if err := h.objectService.DeleteObject(c.Request.Context(), c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Object deleted successfully"})
}
