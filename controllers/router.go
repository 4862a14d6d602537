package controllers

import (
	"time"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/middleware"
	"github.com/ebdesignwerks/quotebackend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config config.Config
	Logger *zap.Logger
	Quotes QuoteSubmitter
	Store  utils.ObjectStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// CORSConfig lets any origin post quote requests.
func CORSConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"X-Amz-Date",
			"Authorization",
			"X-Api-Key",
			"X-Amz-Security-Token",
		},
		ExposeHeaders:             []string{middleware.RequestIDHeader},
		OptionsResponseStatusCode: 200,
		MaxAge:                    12 * time.Hour,
	}
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(cors.New(CORSConfig()))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/ping", Ping())
	r.GET("/site-info", GetSiteInfo(cfg.Business, cfg.Social))

	limits := middleware.RateLimitConfig{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
	quoteLimiter := middleware.NewRateLimiter(limits)
	uploadLimiter := middleware.NewRateLimiter(limits)

	r.POST("/quote-request", quoteLimiter.Middleware(),
		SubmitQuoteRequest(d.Quotes, cfg.RequestTimeout, cfg.Business.Email, d.Logger))
	r.OPTIONS("/quote-request", QuotePreflight())

	validator := utils.NewQuoteFileValidator(cfg.Uploads)
	r.POST("/quote-uploads", uploadLimiter.Middleware(),
		UploadQuoteAttachment(d.Store, validator, cfg.Uploads.MaxUploadBytes(), d.Now, d.Logger))

	admin := r.Group("/admin")
	admin.Use(middleware.OperatorAuth(cfg.OperatorJWTSecret))
	{
		admin.DELETE("/quote-uploads/*key", DeleteQuoteUpload(d.Store, d.Logger))
	}

	return r
}
