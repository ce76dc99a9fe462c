package handler

import (
	"marketplace/internal/config"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SetupRouter 配置路由，rdb 为 nil 时结账不加买家锁
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg, log)

	api := r.Group("/api/v1")
	{
		wallet := api.Group("/wallet")
		{
			wallet.POST("/redeem", h.Redeem)
			wallet.GET("/balance", h.GetBalance)
			wallet.GET("/transactions", h.ListTransactions)
		}

		cart := api.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.POST("/items", h.AddCartItem)
			cart.DELETE("/items/:id", h.RemoveCartItem)
		}

		orders := api.Group("/orders")
		{
			orders.POST("/checkout", h.Checkout)
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.GET("/:id/messages", h.GetOrderMessages)
			orders.POST("/:id/cancel", h.CancelOrder)
			orders.POST("/:id/complete", h.CompleteOrder)
		}

		admin := api.Group("/admin", CurrentUserMiddleware())
		{
			admin.POST("/codes", h.CreateCode)
			admin.GET("/codes", h.ListCodes)
			admin.DELETE("/codes/:id", h.DeleteCode)
			admin.GET("/users", h.ListUsers)
			admin.PUT("/users/role", h.UpdateUserRole)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "接口不存在")
	})

	return r
}
