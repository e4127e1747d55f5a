package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type locationService interface {
	GetLatest(ctx context.Context, userID string) (*domain.Sample, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.Sample, error)
	GetShare(ctx context.Context, userID string) (*domain.LocationShare, error)
	ListAlerts(ctx context.Context, guardianID string, limit int) ([]domain.DeviationAlert, error)
}

type locationResponse struct {
	UserID    string  `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type shareResponse struct {
	UserID     string  `json:"user_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	IsDeviated bool    `json:"is_deviated"`
	UpdatedAt  int64   `json:"updated_at"`
}

type alertResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance_meters"`
	Message        string  `json:"message"`
	CreatedAt      int64   `json:"created_at"`
}

// GuardianHandler serves what a guardian can see about a user.
type GuardianHandler struct {
	locationSvc locationService
}

func NewGuardianHandler(locationSvc locationService) *GuardianHandler {
	return &GuardianHandler{locationSvc: locationSvc}
}

func (h *GuardianHandler) Register(r *gin.RouterGroup) {
	r.GET("/users/:user_id/location", h.GetLatestLocation)
	r.GET("/users/:user_id/history", h.GetHistory)
	r.GET("/users/:user_id/share", h.GetShare)
	r.GET("/guardians/:guardian_id/alerts", h.ListAlerts)
}

func (h *GuardianHandler) GetLatestLocation(c *gin.Context) {
	s, err := h.locationSvc.GetLatest(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch location"})
		return
	}

	c.JSON(http.StatusOK, toLocationResponse(s))
}

func (h *GuardianHandler) GetHistory(c *gin.Context) {
	userID := c.Param("user_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}
	if end < start {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}

	query := &domain.HistoryQuery{
		UserID: userID,
		Start:  time.Unix(start, 0),
		End:    time.Unix(end, 0),
	}

	samples, err := h.locationSvc.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]locationResponse, len(samples))
	for i := range samples {
		results[i] = toLocationResponse(&samples[i])
	}
	c.JSON(http.StatusOK, results)
}

func (h *GuardianHandler) GetShare(c *gin.Context) {
	share, err := h.locationSvc.GetShare(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no shared location"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch shared location"})
		return
	}

	c.JSON(http.StatusOK, shareResponse{
		UserID:     share.UserID,
		Latitude:   share.Position.Lat,
		Longitude:  share.Position.Lon,
		IsDeviated: share.IsDeviated,
		UpdatedAt:  share.UpdatedAt.Unix(),
	})
}

func (h *GuardianHandler) ListAlerts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	alerts, err := h.locationSvc.ListAlerts(c.Request.Context(), c.Param("guardian_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}

	results := make([]alertResponse, len(alerts))
	for i, a := range alerts {
		results[i] = alertResponse{
			ID:             a.ID,
			UserID:         a.UserID,
			Latitude:       a.Position.Lat,
			Longitude:      a.Position.Lon,
			DistanceMeters: a.DistanceMeters,
			Message:        a.Message,
			CreatedAt:      a.CreatedAt.Unix(),
		}
	}
	c.JSON(http.StatusOK, results)
}

func toLocationResponse(s *domain.Sample) locationResponse {
	return locationResponse{
		UserID:    s.UserID,
		Latitude:  s.Position.Lat,
		Longitude: s.Position.Lon,
		Timestamp: s.Timestamp.Unix(),
	}
}
