// Package handler はtrackerフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pair_tracker/internal/feature/tracker/domain/entity"
	"pair_tracker/internal/feature/tracker/transport/http/dto"
)

//go:embed templates/dashboard.html
var pageHTML string

var pageTmpl = template.Must(template.New("dashboard").Parse(pageHTML))

// Refresher はダッシュボード状態の取得と手動リフレッシュを提供します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type Refresher interface {
	Latest() entity.Snapshot
	Trigger(ctx context.Context) entity.Snapshot
	Interval() time.Duration
}

// Hub はWebSocketクライアントへの配信を担います。
type Hub interface {
	Broadcast(v any) error
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// CacheInvalidator drops cached provider responses before a manual refresh.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, symbols []string) error
}

// PageInfo はページ描画と手動リフレッシュに使う表示情報です。
type PageInfo struct {
	Title   string
	Symbols []string
}

// DashboardHandler はダッシュボードのHTTPリクエストを処理し、新しいスナップショットをWebSocketで配信します。
type DashboardHandler struct {
	refresher   Refresher
	hub         Hub
	invalidator CacheInvalidator
	page        PageInfo
}

// NewDashboardHandler は新しい DashboardHandler を生成します。invalidator は nil でも構いません。
func NewDashboardHandler(refresher Refresher, hub Hub, invalidator CacheInvalidator, page PageInfo) *DashboardHandler {
	return &DashboardHandler{refresher: refresher, hub: hub, invalidator: invalidator, page: page}
}

// Get は最新のスナップショットをJSONで返します。
//
// エンドポイント例:
// GET /api/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	h.respond(c, h.refresher.Latest())
}

// Refresh はキャッシュを破棄してから1回パスを実行し、その結果を返します。
// パスは全クライアントで共有されるため、リクエストのキャンセルでは中断しません。
//
// エンドポイント例:
// POST /api/refresh
func (h *DashboardHandler) Refresh(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, h.page.Symbols); err != nil {
			slog.Warn("cache invalidation failed", "error", err)
		}
	}
	h.respond(c, h.refresher.Trigger(ctx))
}

// Page はplotly.jsでチャートを描画するHTMLページを返します。
func (h *DashboardHandler) Page(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := pageTmpl.Execute(c.Writer, map[string]any{
		"Title":          h.page.Title,
		"RefreshSeconds": int(h.refresher.Interval() / time.Second),
	})
	if err != nil {
		slog.Error("render page failed", "error", err)
	}
}

// WS upgrades the connection and subscribes it to snapshot updates.
func (h *DashboardHandler) WS(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// OnSnapshot はリフレッシュ完了ごとに呼ばれ、スナップショットを全クライアントに配信します。
func (h *DashboardHandler) OnSnapshot(snap entity.Snapshot) {
	if err := h.hub.Broadcast(dto.FromSnapshot(snap)); err != nil {
		slog.Error("broadcast failed", "error", err)
	}
}

func (h *DashboardHandler) respond(c *gin.Context, snap entity.Snapshot) {
	c.Header("Cache-Control", "no-store")
	c.JSON(statusFor(snap), dto.FromSnapshot(snap))
}

// statusFor は取得失敗を 502、データ不正を 422、初回パス前を 503 にします。
func statusFor(snap entity.Snapshot) int {
	switch {
	case snap.Failure != nil && snap.Failure.Kind == "fetch_error":
		return http.StatusBadGateway
	case snap.Failure != nil:
		return http.StatusUnprocessableEntity
	case snap.Dashboard == nil:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}
