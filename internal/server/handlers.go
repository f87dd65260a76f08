package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/readlater/readlater/internal/storage"
)

// Responses are plain text so the links in notification emails read well in a browser.
const (
	msgAdded        = "Article added successfully"
	msgFinished     = "Article marked as finished"
	msgNoURL        = "No URL provided"
	msgStorageError = "Storage error"
	msgInternal     = "Internal error"
)

// ArticleStore is the reading list as seen by the HTTP handlers.
type ArticleStore interface {
	List(ctx context.Context) (*storage.ReadingList, error)
	Add(ctx context.Context, url string) error
	Complete(ctx context.Context, url string) error
}

// ArticleHandler serves the reading list routes.
type ArticleHandler struct {
	store  ArticleStore
	logger *slog.Logger
}

// NewArticleHandler creates the handler.
func NewArticleHandler(store ArticleStore, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		store:  store,
		logger: logger.With("component", "server.articles"),
	}
}

// ListOrAdd adds the URL in the "new" query parameter, or returns the whole
// reading list when the parameter is absent.
func (h *ArticleHandler) ListOrAdd(c *gin.Context) {
	ctx := c.Request.Context()

	if newURL := c.Query("new"); newURL != "" {
		if err := h.store.Add(ctx, newURL); err != nil {
			h.fail(c, "Failed to add article", err)
			return
		}
		h.logger.InfoContext(ctx, "Article added", "url", newURL)
		c.String(http.StatusOK, msgAdded)
		return
	}

	list, err := h.store.List(ctx)
	if err != nil {
		h.fail(c, "Failed to list articles", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Finished marks the URL in the "url" query parameter as read.
func (h *ArticleHandler) Finished(c *gin.Context) {
	ctx := c.Request.Context()
	articleURL := c.Query("url")

	if err := h.store.Complete(ctx, articleURL); err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			c.String(http.StatusOK, msgNoURL)
			return
		}
		h.fail(c, "Failed to mark article finished", err)
		return
	}

	h.logger.InfoContext(ctx, "Article marked as finished", "url", articleURL)
	c.String(http.StatusOK, msgFinished)
}

func (h *ArticleHandler) fail(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	h.logger.ErrorContext(c.Request.Context(), msg, "error", err)

	var storageErr *storage.StorageError
	if errors.As(err, &storageErr) {
		c.String(http.StatusInternalServerError, msgStorageError)
		return
	}
	c.String(http.StatusInternalServerError, msgInternal)
}
