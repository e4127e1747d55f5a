package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/service"
)

type navigator interface {
	Start(req service.StartRequest) (*service.Session, error)
	Stop(userID string) error
	SetRoute(userID, destination string, steps []string, points []domain.Coordinate) error
	AdvanceStep(ctx context.Context, userID string) (domain.NavigationSnapshot, error)
	Snapshot(userID string) domain.NavigationSnapshot
	ContextSummary(userID string, weather *domain.Weather) domain.ContextSummary
}

type guardianResolver interface {
	ResolveGuardian(ctx context.Context, userID, claimed string) (string, error)
}

type chatService interface {
	Reply(ctx context.Context, history []domain.ChatMessage, snap domain.NavigationSnapshot, weather *domain.Weather) string
}

type startNavigationRequest struct {
	Destination     string              `json:"destination"`
	GuardianID      string              `json:"guardian_id"`
	Steps           []string            `json:"steps"`
	Route           []domain.Coordinate `json:"route"`
	LocationGranted *bool               `json:"location_granted"`
}

type updateRouteRequest struct {
	Destination string              `json:"destination"`
	Steps       []string            `json:"steps"`
	Route       []domain.Coordinate `json:"route"`
}

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	Weather  string               `json:"weather"`
	Temp     *float64             `json:"temp"`
}

type navigationResponse struct {
	UserID       string             `json:"user_id"`
	Destination  string             `json:"destination"`
	CurrentStep  string             `json:"current_step"`
	IsNavigating bool               `json:"is_navigating"`
	Location     *domain.Coordinate `json:"location,omitempty"`
	Deviation    deviationResponse  `json:"deviation"`
}

type deviationResponse struct {
	State          domain.TrackingState `json:"state"`
	IsDeviated     bool                 `json:"is_deviated"`
	DistanceMeters float64              `json:"distance_meters"`
	LastAlertAt    *int64               `json:"last_alert_at,omitempty"`
}

type NavigationHandler struct {
	nav       navigator
	guardians guardianResolver
	chat      chatService
}

func NewNavigationHandler(nav navigator, guardians guardianResolver, chat chatService) *NavigationHandler {
	return &NavigationHandler{nav: nav, guardians: guardians, chat: chat}
}

func (h *NavigationHandler) Register(r *gin.RouterGroup) {
	r.POST("/users/:user_id/navigation", h.Start)
	r.DELETE("/users/:user_id/navigation", h.Stop)
	r.PUT("/users/:user_id/navigation/route", h.UpdateRoute)
	r.POST("/users/:user_id/navigation/next-step", h.NextStep)
	r.GET("/users/:user_id/deviation", h.GetDeviation)
	r.GET("/users/:user_id/context", h.GetContext)
	r.POST("/users/:user_id/chat", h.Chat)
}

func (h *NavigationHandler) Start(c *gin.Context) {
	userID := c.Param("user_id")

	var req startNavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// the session reports to the guardian who redeemed the user's link code
	guardianID, err := h.guardians.ResolveGuardian(c.Request.Context(), userID, req.GuardianID)
	if err != nil {
		writeError(c, err, "failed to start navigation")
		return
	}

	// an omitted flag means the device did not ask, treat it as granted
	granted := req.LocationGranted == nil || *req.LocationGranted

	_, err = h.nav.Start(service.StartRequest{
		Route: domain.Route{
			UserID:      userID,
			GuardianID:  guardianID,
			Destination: req.Destination,
			Steps:       req.Steps,
			Points:      req.Route,
		},
		LocationGranted: granted,
	})
	if err != nil {
		writeError(c, err, "failed to start navigation")
		return
	}

	c.JSON(http.StatusCreated, toNavigationResponse(h.nav.Snapshot(userID)))
}

func (h *NavigationHandler) Stop(c *gin.Context) {
	if err := h.nav.Stop(c.Param("user_id")); err != nil {
		writeError(c, err, "failed to stop navigation")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NavigationHandler) UpdateRoute(c *gin.Context) {
	userID := c.Param("user_id")

	var req updateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.nav.SetRoute(userID, req.Destination, req.Steps, req.Route); err != nil {
		writeError(c, err, "failed to update route")
		return
	}

	c.JSON(http.StatusOK, toNavigationResponse(h.nav.Snapshot(userID)))
}

func (h *NavigationHandler) NextStep(c *gin.Context) {
	snap, err := h.nav.AdvanceStep(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err, "failed to advance step")
		return
	}
	c.JSON(http.StatusOK, toNavigationResponse(snap))
}

func (h *NavigationHandler) GetDeviation(c *gin.Context) {
	snap := h.nav.Snapshot(c.Param("user_id"))
	c.JSON(http.StatusOK, toDeviationResponse(snap.Deviation))
}

func (h *NavigationHandler) GetContext(c *gin.Context) {
	weather, err := parseWeather(c.Query("weather"), c.Query("temp"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid temp parameter"})
		return
	}

	c.JSON(http.StatusOK, h.nav.ContextSummary(c.Param("user_id"), weather))
}

func (h *NavigationHandler) Chat(c *gin.Context) {
	userID := c.Param("user_id")

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var weather *domain.Weather
	if req.Weather != "" || req.Temp != nil {
		weather = &domain.Weather{Condition: req.Weather, TempC: req.Temp}
	}

	reply := h.chat.Reply(c.Request.Context(), req.Messages, h.nav.Snapshot(userID), weather)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func parseWeather(condition, temp string) (*domain.Weather, error) {
	if condition == "" && temp == "" {
		return nil, nil
	}
	w := &domain.Weather{Condition: condition}
	if temp != "" {
		t, err := strconv.ParseFloat(temp, 64)
		if err != nil {
			return nil, err
		}
		w.TempC = &t
	}
	return w, nil
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrLocationDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "location permission denied"})
	case errors.Is(err, domain.ErrGuardianNotLinked):
		c.JSON(http.StatusForbidden, gin.H{"error": "guardian not linked"})
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrInvalidRoute):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidLinkCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or used link code"})
	case errors.Is(err, domain.ErrNoActiveSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active navigation"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func toNavigationResponse(snap domain.NavigationSnapshot) navigationResponse {
	return navigationResponse{
		UserID:       snap.UserID,
		Destination:  snap.Destination,
		CurrentStep:  snap.CurrentStep,
		IsNavigating: snap.IsNavigating,
		Location:     snap.CurrentLocation,
		Deviation:    toDeviationResponse(snap.Deviation),
	}
}

func toDeviationResponse(st domain.DeviationState) deviationResponse {
	resp := deviationResponse{
		State:          st.State(),
		IsDeviated:     st.IsDeviated,
		DistanceMeters: st.DistanceMeters,
	}
	if !st.LastAlertAt.IsZero() {
		ts := st.LastAlertAt.Unix()
		resp.LastAlertAt = &ts
	}
	return resp
}
