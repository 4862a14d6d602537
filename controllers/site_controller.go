package controllers

import (
	"net/http"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/dto"
	"github.com/gin-gonic/gin"
)

func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	}
}

// GetSiteInfo serves the business details shown on the static pages.
func GetSiteInfo(b config.Business, s config.Social) gin.HandlerFunc {
	info := dto.SiteInfoDTO{
		Name:        b.Name,
		Tagline:     b.Tagline,
		Description: b.Description,
		Email:       b.Email,
		Phone:       b.Phone,
		Address:     b.Address,
		Social:      map[string]string{},
	}
	for name, url := range map[string]string{
		"instagram": s.Instagram,
		"facebook":  s.Facebook,
		"linkedin":  s.LinkedIn,
		"youtube":   s.YouTube,
		"tiktok":    s.TikTok,
	} {
		if url != "" {
			info.Social[name] = url
		}
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
