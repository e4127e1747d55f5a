package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type routeHistoryService interface {
	Save(ctx context.Context, entry *domain.RouteHistoryEntry) error
	Recent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error)
	Frequent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error)
	Favorites(ctx context.Context, userID string) ([]domain.RouteHistoryEntry, error)
	SetFavorite(ctx context.Context, userID, id string, favorite bool) error
	Delete(ctx context.Context, userID, id string) error
}

type placeBody struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type saveRouteRequest struct {
	Origin      placeBody `json:"origin"`
	Destination placeBody `json:"destination"`
	DurationMin int       `json:"duration_min"`
	DistanceM   int       `json:"distance_m"`
}

type favoriteRequest struct {
	IsFavorite *bool `json:"is_favorite"`
}

type routeResponse struct {
	ID          string    `json:"id"`
	Origin      placeBody `json:"origin"`
	Destination placeBody `json:"destination"`
	DurationMin int       `json:"duration_min"`
	DistanceM   int       `json:"distance_m"`
	IsFavorite  bool      `json:"is_favorite"`
	UsedCount   int       `json:"used_count"`
	CreatedAt   int64     `json:"created_at"`
	LastUsedAt  int64     `json:"last_used_at"`
}

// RouteHistoryHandler serves a user's recent, frequent and favorite trips.
type RouteHistoryHandler struct {
	routes routeHistoryService
}

func NewRouteHistoryHandler(routes routeHistoryService) *RouteHistoryHandler {
	return &RouteHistoryHandler{routes: routes}
}

func (h *RouteHistoryHandler) Register(r *gin.RouterGroup) {
	r.POST("/users/:user_id/routes", h.Save)
	r.GET("/users/:user_id/routes/recent", h.Recent)
	r.GET("/users/:user_id/routes/frequent", h.Frequent)
	r.GET("/users/:user_id/routes/favorites", h.Favorites)
	r.PUT("/users/:user_id/routes/:route_id/favorite", h.SetFavorite)
	r.DELETE("/users/:user_id/routes/:route_id", h.Delete)
}

func (h *RouteHistoryHandler) Save(c *gin.Context) {
	var req saveRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry := &domain.RouteHistoryEntry{
		UserID:      c.Param("user_id"),
		Origin:      req.Origin.place(),
		Destination: req.Destination.place(),
		DurationMin: req.DurationMin,
		DistanceM:   req.DistanceM,
	}
	if err := h.routes.Save(c.Request.Context(), entry); err != nil {
		writeError(c, err, "failed to save route")
		return
	}
	c.JSON(http.StatusCreated, toRouteResponse(entry))
}

func (h *RouteHistoryHandler) Recent(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	routes, err := h.routes.Recent(c.Request.Context(), c.Param("user_id"), limit)
	h.writeRoutes(c, routes, err)
}

func (h *RouteHistoryHandler) Frequent(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	routes, err := h.routes.Frequent(c.Request.Context(), c.Param("user_id"), limit)
	h.writeRoutes(c, routes, err)
}

func (h *RouteHistoryHandler) Favorites(c *gin.Context) {
	routes, err := h.routes.Favorites(c.Request.Context(), c.Param("user_id"))
	h.writeRoutes(c, routes, err)
}

func (h *RouteHistoryHandler) SetFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsFavorite == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_favorite is required"})
		return
	}
	if err := h.routes.SetFavorite(c.Request.Context(), c.Param("user_id"), c.Param("route_id"), *req.IsFavorite); err != nil {
		writeError(c, err, "failed to update route")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RouteHistoryHandler) Delete(c *gin.Context) {
	if err := h.routes.Delete(c.Request.Context(), c.Param("user_id"), c.Param("route_id")); err != nil {
		writeError(c, err, "failed to delete route")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RouteHistoryHandler) writeRoutes(c *gin.Context, routes []domain.RouteHistoryEntry, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch routes"})
		return
	}
	results := make([]routeResponse, len(routes))
	for i := range routes {
		results[i] = toRouteResponse(&routes[i])
	}
	c.JSON(http.StatusOK, results)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return 0, false
	}
	return n, true
}

func (p placeBody) place() domain.Place {
	return domain.Place{
		Name:     p.Name,
		Address:  p.Address,
		Position: domain.Coordinate{Lat: p.Latitude, Lon: p.Longitude},
	}
}

func toPlaceBody(p domain.Place) placeBody {
	return placeBody{
		Name:      p.Name,
		Address:   p.Address,
		Latitude:  p.Position.Lat,
		Longitude: p.Position.Lon,
	}
}

func toRouteResponse(e *domain.RouteHistoryEntry) routeResponse {
	return routeResponse{
		ID:          e.ID,
		Origin:      toPlaceBody(e.Origin),
		Destination: toPlaceBody(e.Destination),
		DurationMin: e.DurationMin,
		DistanceM:   e.DistanceM,
		IsFavorite:  e.IsFavorite,
		UsedCount:   e.UsedCount,
		CreatedAt:   e.CreatedAt.Unix(),
		LastUsedAt:  e.LastUsedAt.Unix(),
	}
}
