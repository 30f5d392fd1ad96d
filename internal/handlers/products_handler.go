package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/campus-orderflow/internal/catalog"
)

// RegisterProductRoutes registers GET /products/:id.
func RegisterProductRoutes(r gin.IRoutes, store *catalog.Store) {
	r.GET("/products/:id", func(c *gin.Context) {
		p, err := store.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, catalog.ErrNotFound) {
			abortError(c, http.StatusNotFound, "not_found", "product not found")
			return
		}
		if err != nil {
			_ = c.Error(err)
			abortError(c, http.StatusInternalServerError, "internal_error", "something went wrong")
			return
		}
		c.JSON(http.StatusOK, p)
	})
}
