package httpserver

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ordersvc "storefront/internal/service/order"
)

type statusRequest struct {
	OrderStatus    string `json:"orderStatus" binding:"required"`
	TrackingNumber string `json:"trackingNumber"`
}

func createOrderHandler(svc orderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ordersvc.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		in.IdempotencyKey = c.GetHeader("Idempotency-Key")

		res, err := svc.Create(c.Request.Context(), currentUser(c).ID, in)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		status, msg := http.StatusCreated, "Order created successfully"
		if res.Replayed {
			status, msg = http.StatusOK, "Order already created"
		}
		respondOK(c, status, envelope{Message: msg, Data: toOrderView(*res.Order), Warnings: res.Warnings})
	}
}

func listOrdersHandler(svc orderService, logger *log.Logger, pages pageDefaults) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pages.parse(c)
		orders, total, err := svc.List(c.Request.Context(), currentUser(c).ID, c.Query("status"), page, limit)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		count := len(orders)
		respondOK(c, http.StatusOK, envelope{
			Data:       toOrderViews(orders),
			Count:      &count,
			Pagination: newPagination(page, limit, total),
		})
	}
}

func getOrderHandler(svc orderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.Get(c.Request.Context(), currentUser(c).ID, c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Data: toOrderView(*o)})
	}
}

func cancelOrderHandler(svc orderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.Cancel(c.Request.Context(), currentUser(c).ID, c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Order cancelled successfully", Data: toOrderView(*o)})
	}
}

func updateOrderStatusHandler(svc orderService, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "Order status is required")
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.OrderStatus, req.TrackingNumber)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		respondOK(c, http.StatusOK, envelope{Message: "Order status updated successfully", Data: toOrderView(*o)})
	}
}

type pageDefaults struct {
	limit int
	max   int
}

// parse reads page and limit query parameters. Malformed or out-of-range
// values fall back to the defaults.
func (p pageDefaults) parse(c *gin.Context) (int, int) {
	page := atoiOr(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := atoiOr(c.Query("limit"), p.limit)
	if limit < 1 {
		limit = p.limit
	}
	if p.max > 0 && limit > p.max {
		limit = p.max
	}
	return page, limit
}

func atoiOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
