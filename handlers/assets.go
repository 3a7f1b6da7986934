package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkpad/inkpad/pkg/logger"
	"github.com/inkpad/inkpad/pkg/metrics"
	"github.com/inkpad/inkpad/pkg/middleware"
)

// ObjectStore is the subset of the storage client the asset routes need.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
}

// AssetHandler stores cover images and in-document file attachments. Keys are
// namespaced per owner so presigned or proxied reads cannot be guessed across
// accounts.
type AssetHandler struct {
	store ObjectStore
	// maxSize bounds multipart uploads; zero means the default
	maxSize int64
}

const defaultMaxAssetSize = 16 << 20 // 16 MiB

func NewAssetHandler(store ObjectStore) *AssetHandler {
	return &AssetHandler{store: store, maxSize: defaultMaxAssetSize}
}

// RegisterAssetRoutes wires asset upload/download. Both require auth; asset
// URLs embedded in published documents are resolved by the frontend through
// its own session.
func RegisterAssetRoutes(r *gin.Engine, h *AssetHandler, ver middleware.Verifier) {
	assets := r.Group("/api/assets")
	assets.Use(middleware.AuthMiddleware(ver))
	assets.POST("", h.Upload)
	assets.GET("/:owner/:name", h.Download)
}

func (h *AssetHandler) Upload(c *gin.Context) {
	id := middleware.IdentityFromContext(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()
	if header.Size > h.maxSize {
		metrics.AssetUploads.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.maxSize)})
		return
	}

	ext := path.Ext(header.Filename)
	key := fmt.Sprintf("%s/%s%s", id.Subject, uuid.NewString(), ext)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	if err := h.store.UploadFile(ctx, key, file, header.Size, contentType); err != nil {
		metrics.AssetUploads.WithLabelValues("error").Inc()
		logger.Errorf("asset upload %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	metrics.AssetUploads.WithLabelValues("ok").Inc()
	c.JSON(http.StatusCreated, gin.H{"key": key, "url": "/api/assets/" + key})
}

func (h *AssetHandler) Download(c *gin.Context) {
	key := c.Param("owner") + "/" + c.Param("name")
	obj, err := h.store.DownloadFile(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	defer obj.Close()
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		logger.Errorf("asset download %s: %v", key, err)
	}
}
