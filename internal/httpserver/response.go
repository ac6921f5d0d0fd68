package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(page, limit, total int) *pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type stockDetail struct {
	ProductID string `json:"productId"`
	Product   string `json:"product"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func respondOK(c *gin.Context, status int, env envelope) {
	env.Success = true
	c.JSON(status, env)
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: status < 400, Message: message})
}

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a generic 500.
func respondError(c *gin.Context, logger *log.Logger, err error) {
	var stock *domain.InsufficientStockError
	if errors.As(err, &stock) {
		c.JSON(http.StatusBadRequest, envelope{
			Message: stock.Error(),
			Data: stockDetail{
				ProductID: stock.ProductID,
				Product:   stock.ProductName,
				Available: stock.Available,
				Requested: stock.Requested,
			},
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Printf("http: %s %s request_id=%s error=%v", c.Request.Method, c.FullPath(), c.GetString(requestIDKey), err)
		respondMessage(c, status, "Server error")
		return
	}

	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	respondMessage(c, status, msg)
}
