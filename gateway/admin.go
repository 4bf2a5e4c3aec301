package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/promo"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) getSettings(c *gin.Context) {
	value, err := g.store.GetSetting(c.Request.Context(), models.SettingKeyStore)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusOK, models.StoreSettings{})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get settings"})
		return
	}

	var settings models.StoreSettings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (g *Gateway) putSettings(c *gin.Context) {
	var settings models.StoreSettings
	if err := c.BindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	value, err := json.Marshal(settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serialize settings"})
		return
	}
	if err := g.store.PutSetting(c.Request.Context(), models.SettingKeyStore, string(value)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (g *Gateway) listPromoCodes(c *gin.Context) {
	codes, err := g.store.ListPromoCodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list promo codes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promo_codes": codes})
}

type savePromoCodeRequest struct {
	DiscountPercent int  `json:"discount_percent" binding:"required"`
	Active          bool `json:"active"`
}

func (g *Gateway) savePromoCode(c *gin.Context) {
	var req savePromoCodeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DiscountPercent < 1 || req.DiscountPercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount_percent must be between 1 and 100"})
		return
	}

	code := models.PromoCode{
		Code:            strings.ToUpper(c.Param("code")),
		DiscountPercent: req.DiscountPercent,
		Active:          req.Active,
	}
	if err := g.store.SavePromoCode(c.Request.Context(), &code); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save promo code"})
		return
	}

	// Stored codes changed; drop the cached list so the resolver sees them.
	if g.redis != nil {
		g.redis.Del(c.Request.Context(), promo.CacheKey)
	}

	c.JSON(http.StatusOK, code)
}

func (g *Gateway) deletePromoCode(c *gin.Context) {
	if err := g.store.DeletePromoCode(c.Request.Context(), c.Param("code")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete promo code"})
		return
	}

	if g.redis != nil {
		g.redis.Del(c.Request.Context(), promo.CacheKey)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
