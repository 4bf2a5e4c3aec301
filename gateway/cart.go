package gateway

import (
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) getCart(c *gin.Context) {
	sessionCart, err := g.carts.Get(c.Request.Context(), g.sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, sessionCart)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

func (g *Gateway) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := g.store.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get product"})
		return
	}

	sessionCart, err := g.carts.AddItem(c.Request.Context(), g.sessionID(c), product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add item"})
		return
	}
	c.JSON(http.StatusOK, sessionCart)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionCart, err := g.carts.UpdateQuantity(c.Request.Context(), g.sessionID(c), c.Param("productID"), req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update quantity"})
		return
	}
	c.JSON(http.StatusOK, sessionCart)
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	sessionCart, err := g.carts.RemoveItem(c.Request.Context(), g.sessionID(c), c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove item"})
		return
	}
	c.JSON(http.StatusOK, sessionCart)
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.carts.Clear(c.Request.Context(), g.sessionID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
