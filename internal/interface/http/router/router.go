// Package router 组装gin引擎:中间件、业务路由、运维路由
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/circulation/internal/interface/http/handler"
	"github.com/xiebiao/circulation/internal/interface/http/middleware"
	"github.com/xiebiao/circulation/internal/interface/ws"
	"github.com/xiebiao/circulation/pkg/response"

	_ "github.com/xiebiao/circulation/docs" // swagger文档
)

// Options 路由选项
type Options struct {
	Mode           string   // debug | release | test
	AllowOrigins   []string // 为空表示允许所有来源
	MetricsEnabled bool
	MetricsPath    string
	Swagger        bool
}

// New 创建gin引擎并注册全部路由
// hub为nil时不注册/ws/availability
func New(
	opts Options,
	circulationHandler *handler.CirculationHandler,
	catalogHandler *handler.CatalogHandler,
	hub *ws.Hub,
) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		corsMiddleware(opts.AllowOrigins),
		middleware.Tracing(),
		middleware.Logger(),
		middleware.Metrics(),
	)

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 访问 /swagger/index.html 查看API文档
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if hub != nil {
		r.GET("/ws/availability", hub.Handle)
	}

	v1 := r.Group("/api/v1")
	{
		// 借还
		v1.POST("/checkout/:isbn", circulationHandler.Checkout)
		v1.POST("/checkin", circulationHandler.Checkin)

		// 馆藏
		books := v1.Group("/books")
		{
			books.GET("", catalogHandler.SearchBooks)
			books.POST("", catalogHandler.AddBook)
			books.POST("/search", catalogHandler.AdvancedSearch)
			books.GET("/:id", catalogHandler.GetBook)
		}

		v1.GET("/inventory/audit", catalogHandler.AuditInventory)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader, "traceparent"},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
