package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpad/inkpad/internal/access"
	"github.com/inkpad/inkpad/internal/document"
	"github.com/inkpad/inkpad/internal/document/propagate"
	"github.com/inkpad/inkpad/internal/document/repository"
	"github.com/inkpad/inkpad/internal/document/service"
	"github.com/inkpad/inkpad/pkg/logger"
	"github.com/inkpad/inkpad/pkg/middleware"
)

// DocumentHandler exposes the document service over HTTP. All routes except
// GET /:id require an authenticated caller; GET /:id accepts anonymous
// requests so published documents can be shared by link.
type DocumentHandler struct {
	svc *service.Service
}

func NewDocumentHandler(svc *service.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// RegisterDocumentRoutes wires the document routes. ver authenticates
// mutating routes; GET /:id runs behind the optional variant.
func RegisterDocumentRoutes(r *gin.Engine, h *DocumentHandler, ver middleware.Verifier) {
	docs := r.Group("/api/documents")
	docs.GET("/:id", middleware.OptionalAuthMiddleware(ver), h.Get)

	authed := docs.Group("")
	authed.Use(middleware.AuthMiddleware(ver))
	authed.POST("", h.Create)
	authed.GET("", h.Sidebar)
	authed.GET("/trash", h.Trash)
	authed.GET("/search", h.Search)
	authed.GET("/shared", h.Shared)
	authed.PATCH("/:id", h.Update)
	authed.POST("/:id/archive", h.Archive)
	authed.POST("/:id/restore", h.Restore)
	authed.DELETE("/:id", h.Delete)
	authed.DELETE("/:id/cover", h.RemoveCoverImage)
	authed.DELETE("/:id/icon", h.RemoveIcon)
	authed.POST("/:id/collaborators", h.AddCollaborator)
	authed.DELETE("/:id/collaborators/:email", h.RemoveCollaborator)
}

type createDocumentRequest struct {
	Title    string `json:"title"`
	ParentID string `json:"parentDocument,omitempty"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}
	doc, err := h.svc.Create(c.Request.Context(), middleware.IdentityFromContext(c), req.Title, req.ParentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, level, err := h.svc.Get(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc, "access": level})
}

type updateDocumentRequest struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	IsPublished *bool   `json:"isPublished,omitempty"`
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.svc.Update(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"), document.Patch{
		Title:       req.Title,
		Content:     req.Content,
		CoverImage:  req.CoverImage,
		Icon:        req.Icon,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Archive(c *gin.Context) {
	doc, job, err := h.svc.Archive(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	go logJobOutcome("archive", doc.ID, job)
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Restore(c *gin.Context) {
	doc, job, err := h.svc.Restore(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	go logJobOutcome("restore", doc.ID, job)
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) Sidebar(c *gin.Context) {
	docs, err := h.svc.Sidebar(c.Request.Context(), middleware.IdentityFromContext(c), c.Query("parentDocument"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *DocumentHandler) Trash(c *gin.Context) {
	docs, err := h.svc.Trash(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *DocumentHandler) Search(c *gin.Context) {
	docs, err := h.svc.Search(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *DocumentHandler) Shared(c *gin.Context) {
	docs, err := h.svc.Shared(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

type collaboratorRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *DocumentHandler) AddCollaborator(c *gin.Context) {
	var req collaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.svc.AddCollaborator(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"), req.Email)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) RemoveCollaborator(c *gin.Context) {
	doc, err := h.svc.RemoveCollaborator(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"), c.Param("email"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) RemoveCoverImage(c *gin.Context) {
	doc, err := h.svc.RemoveCoverImage(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) RemoveIcon(c *gin.Context) {
	doc, err := h.svc.RemoveIcon(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// logJobOutcome drains a propagation job in the background so failures
// surface in the logs even though the HTTP response has already gone out.
func logJobOutcome(op, docID string, job *propagate.Job) {
	if job == nil {
		return
	}
	if err := job.Wait(); err != nil {
		logger.Errorf("%s propagation for %s: %v", op, docID, err)
	}
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, access.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, service.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("document handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
