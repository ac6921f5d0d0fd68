package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	productsvc "storefront/internal/service/product"
)

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func listProductsHandler(svc productService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q productsvc.ListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid query parameters")
			return
		}
		page, err := svc.List(c.Request.Context(), q)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondPage(c, page)
	}
}

func productsByCategoryHandler(svc productService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svc.ByCategory(c.Request.Context(), c.Param("category"), atoiOr(c.Query("page"), 1), atoiOr(c.Query("limit"), 0))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondPage(c, page)
	}
}

func respondPage(c *gin.Context, page *productsvc.Page) {
	count := len(page.Products)
	respondOK(c, http.StatusOK, envelope{
		Data:       toProductViews(page.Products),
		Count:      &count,
		Pagination: newPagination(page.Page, page.Limit, page.Total),
	})
}

func getProductHandler(svc productService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Data: toProductView(*p)})
	}
}

func deactivateProductHandler(svc productService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Product deleted successfully"})
	}
}

func addReviewHandler(svc productService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		p, err := svc.AddReview(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Rating, req.Comment)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusCreated, envelope{Message: "Review added successfully", Data: toProductView(*p)})
	}
}
