package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	cartsvc "storefront/internal/service/cart"
)

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func getCartHandler(svc cartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Get(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Data: toCartViews(items)})
	}
}

func addToCartHandler(svc cartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in cartsvc.AddInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		items, err := svc.Add(c.Request.Context(), currentUser(c).ID, in)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Product added to cart", Data: toCartViews(items)})
	}
}

func updateCartItemHandler(svc cartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		items, err := svc.Update(c.Request.Context(), currentUser(c).ID, c.Param("productId"), req.Quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Cart updated", Data: toCartViews(items)})
	}
}

func removeFromCartHandler(svc cartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.Remove(c.Request.Context(), currentUser(c).ID, c.Param("productId"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Product removed from cart", Data: toCartViews(items)})
	}
}

func clearCartHandler(svc cartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Cart cleared", Data: []cartItemView{}})
	}
}

func cartSummaryHandler(svc cartService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, err := svc.Summary(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Data: toCartSummaryView(sum)})
	}
}
