package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type createCardPaymentRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	Description string `json:"description"`
}

// createCardPayment registers the order with the card-payment provider and
// hands the confirmation URL back for the client redirect.
func (g *Gateway) createCardPayment(c *gin.Context) {
	if g.cards == nil || !g.cards.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "card payments are not configured"})
		return
	}

	var req createCardPaymentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := g.orders.Get(c.Request.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}

	description := req.Description
	if description == "" {
		description = "Заказ №" + order.ID
	}

	created, err := g.cards.CreatePayment(c.Request.Context(), order.ID, order.TotalAmount, description)
	if err != nil {
		g.logger.Error("Failed to create card payment",
			zap.String("order_id", order.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
		return
	}

	if err := g.store.SetOrderPaymentID(c.Request.Context(), order.ID, created.ID); err != nil {
		g.logger.Error("Failed to store payment id",
			zap.String("order_id", order.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":       created.ID,
		"confirmation_url": created.ConfirmationURL,
	})
}

// quickpayRedirect builds the hosted payment page URL for the order.
func (g *Gateway) quickpayRedirect(c *gin.Context) {
	if g.quickpay == nil || !g.quickpay.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quickpay is not configured"})
		return
	}

	order, err := g.orders.Get(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}

	redirectURL, err := g.quickpay.BuildRedirectURL(order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build redirect url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect_url": redirectURL})
}

// submitReceipt accepts the bank-transfer receipt upload. Type and size are
// checked before the file is read.
func (g *Gateway) submitReceipt(c *gin.Context) {
	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt file is required"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := payment.ValidateReceipt(contentType, fileHeader.Size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open upload"})
		return
	}
	defer file.Close()

	order, err := g.bank.SubmitReceipt(c.Request.Context(),
		c.Param("id"), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, payment.ErrReceiptNotImage), errors.Is(err, payment.ErrReceiptTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, payment.ErrOrderNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			g.logger.Error("Receipt submission failed",
				zap.String("order_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to forward receipt"})
		}
		return
	}

	c.JSON(http.StatusOK, order)
}

type confirmPaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// confirmPayment performs the single status check on return from a redirect
// gateway. A non-final provider status leaves the order as is.
func (g *Gateway) confirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := g.confirmer.Confirm(c.Request.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, payment.ErrNoPayment):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order has no payment to confirm"})
		default:
			g.logger.Error("Payment confirmation failed",
				zap.String("order_id", req.OrderID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to check payment status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":        result.Order.ID,
		"status":          result.Order.Status,
		"provider_status": result.ProviderStatus,
	})
}

type webhookPayload struct {
	Event  string `json:"event"`
	Label  string `json:"label"`
	Object struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Metadata struct {
			OrderID string `json:"order_id"`
		} `json:"metadata"`
	} `json:"object"`
}

// providerWebhook always answers 200 so the provider does not retry-storm
// us. Internal failures go to the audit log and the retry actor, never into
// the response.
func (g *Gateway) providerWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		g.logger.Warn("Malformed webhook payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	label := payload.Label
	if label == "" {
		label = payload.Object.Metadata.OrderID
	}

	if err := g.confirmer.ApplyProviderEvent(c.Request.Context(),
		payload.Object.ID, label, payload.Object.Status); err != nil {
		g.logger.Error("Webhook processing failed",
			zap.String("payment_id", payload.Object.ID),
			zap.String("label", label),
			zap.Error(err))
		if g.audit != nil {
			go g.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
				Action:  "webhook_failed",
				OrderID: label,
				Data: bson.M{
					"payment_id": payload.Object.ID,
					"status":     payload.Object.Status,
					"error":      err.Error(),
				},
			})
		}
	}

	c.Status(http.StatusOK)
}
