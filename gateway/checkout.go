package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/promo"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type applyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

func (g *Gateway) applyPromo(c *gin.Context) {
	var req applyPromoRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := g.promos.Resolve(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, promo.ErrInvalidCode) {
			c.JSON(http.StatusOK, gin.H{"valid": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check promo code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":            true,
		"code":             code.Code,
		"discount_percent": code.DiscountPercent,
	})
}

func (g *Gateway) checkout(c *gin.Context) {
	var req orders.CheckoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := g.orders.Checkout(c.Request.Context(), g.sessionID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrValidation), errors.Is(err, orders.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, orders.ErrTotalMismatch):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			g.logger.Error("Checkout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		}
		return
	}

	// Audit log
	if g.audit != nil {
		go g.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Action:  "create_order",
			OrderID: order.ID,
			Data: bson.M{
				"payment_method": order.PaymentMethod,
				"total_amount":   order.TotalAmount,
			},
		})
	}

	c.JSON(http.StatusCreated, order)
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, err := g.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// getOrderStatus serves the confirmation landing page. Status is cached in
// redis for a short window so page reloads stay off the database.
func (g *Gateway) getOrderStatus(c *gin.Context) {
	id := c.Param("id")

	if g.redis != nil {
		if cached, err := g.redis.GetOrderStatusCache(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, gin.H{"id": cached.ID, "status": cached.Status})
			return
		}
	}

	order, err := g.orders.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}

	if g.redis != nil {
		g.redis.CacheOrderStatus(c.Request.Context(), &repository.OrderStatusCache{
			ID:     order.ID,
			Status: order.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{"id": order.ID, "status": order.Status})
}

func (g *Gateway) listOrders(c *gin.Context) {
	ordersList, total, err := g.orders.List(c.Request.Context(),
		c.Query("status"), queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": ordersList,
		"total":  total,
	})
}

func (g *Gateway) cancelOrder(c *gin.Context) {
	order, err := g.orders.Transition(c.Request.Context(), c.Param("id"), models.OrderStatusCancelled)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, orders.ErrBadTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel order"})
		}
		return
	}
	c.JSON(http.StatusOK, order)
}
