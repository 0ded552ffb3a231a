package router

import (
	"net/http"

	_ "medi-kart/internal/docs"
	"medi-kart/internal/handler"
	"medi-kart/internal/metrics"
	"medi-kart/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth         *handler.AuthHandler
	Medicine     *handler.MedicineHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Prescription *handler.PrescriptionHandler
}

// Options controls the optional surfaces of the router.
type Options struct {
	UploadDir      string
	MetricsEnabled bool
}

// New creates a gin engine with all routes and middleware configured.
func New(h Handlers, tokens middleware.TokenParser, opts Options, logger zerolog.Logger) *gin.Engine {
	r := gin.New()

	// RequestID -> Recovery -> Logging -> CORS -> Prometheus
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.CORS(),
	)
	if opts.MetricsEnabled {
		r.Use(middleware.Prometheus())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	api := r.Group("/api")
	authenticated := middleware.Authenticate(tokens, logger)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/profile", authenticated, h.Auth.Profile)
	}

	medicines := api.Group("/medicines")
	{
		medicines.GET("", h.Medicine.List)
		medicines.GET("/:id", h.Medicine.Get)
		medicines.POST("", authenticated, h.Medicine.Create)
	}

	cart := api.Group("/cart", authenticated)
	{
		cart.GET("", h.Cart.Get)
		cart.POST("", h.Cart.AddItem)
		cart.DELETE("", h.Cart.Clear)
		cart.PUT("/:itemId", h.Cart.UpdateItem)
		cart.DELETE("/:itemId", h.Cart.RemoveItem)
	}

	orders := api.Group("/orders", authenticated)
	{
		orders.POST("", h.Order.Place)
		orders.GET("", h.Order.ListMine)
		orders.GET("/all", h.Order.ListAll)
		orders.GET("/:orderId", h.Order.Get)
		orders.PUT("/:orderId", h.Order.UpdateStatus)
		orders.PATCH("/:orderId", h.Order.Cancel)
	}

	prescriptions := api.Group("/prescription", authenticated)
	{
		prescriptions.POST("/requests", h.Prescription.Create)
		prescriptions.GET("/patient/requests", h.Prescription.ListMine)
		prescriptions.GET("/pharmacist/requests", h.Prescription.ListAll)
		prescriptions.GET("/requests/:id", h.Prescription.Get)
		prescriptions.PUT("/requests/:id", h.Prescription.Respond)
		prescriptions.PATCH("/requests/:id/status", h.Prescription.UpdateStatus)
	}

	return r
}
