// Package router はHTTPルーティングを組み立てます。
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	trackerhandler "pair_tracker/internal/feature/tracker/transport/handler"
	"pair_tracker/internal/platform/http/handler"
)

// NewRouter はダッシュボード、API、WebSocket、監視用のルートを登録したエンジンを返します。
func NewRouter(dashboard *trackerhandler.DashboardHandler, snapshots handler.SnapshotSource, corsEnabled bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// ブラウザ以外のクライアントから叩く場合のみ有効化
	if corsEnabled {
		r.Use(cors.Default())
	}

	// 導通確認用
	health := handler.Health(snapshots)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ダッシュボード
	r.GET("/", dashboard.Page)
	r.GET("/ws", dashboard.WS)

	api := r.Group("/api")
	{
		api.GET("/dashboard", dashboard.Get)
		api.POST("/refresh", dashboard.Refresh)
	}

	return r
}

