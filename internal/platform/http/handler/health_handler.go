// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pair_tracker/internal/feature/tracker/domain/entity"
)

// SnapshotSource は最新のリフレッシュ状態を返します。
type SnapshotSource interface {
	Latest() entity.Snapshot
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを返します。
// プロセスが生きていれば常に200を返し、本文に最後のパスの状態を含めます。
func Health(src SnapshotSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		switch c.Request.Method {
		case http.MethodHead:
			c.Status(http.StatusOK)
			return
		case http.MethodOptions:
			c.Status(http.StatusNoContent)
			return
		}

		snap := src.Latest()
		body := gin.H{"status": "starting"}
		switch {
		case snap.Dashboard != nil:
			body["status"] = "ok"
		case snap.Failure != nil:
			body["status"] = "degraded"
			body["last_error"] = snap.Failure.Kind
		}
		if !snap.LastRefresh.IsZero() {
			body["last_refresh"] = snap.LastRefresh.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, body)
	}
}
