package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/service"
)

type mockNavigator struct {
	startFn       func(req service.StartRequest) (*service.Session, error)
	stopFn        func(userID string) error
	setRouteFn    func(userID, destination string, steps []string, points []domain.Coordinate) error
	advanceStepFn func(ctx context.Context, userID string) (domain.NavigationSnapshot, error)
	snapshotFn    func(userID string) domain.NavigationSnapshot
	summaryFn     func(userID string, weather *domain.Weather) domain.ContextSummary
}

func (m *mockNavigator) Start(req service.StartRequest) (*service.Session, error) {
	return m.startFn(req)
}

func (m *mockNavigator) Stop(userID string) error {
	return m.stopFn(userID)
}

func (m *mockNavigator) SetRoute(userID, destination string, steps []string, points []domain.Coordinate) error {
	return m.setRouteFn(userID, destination, steps, points)
}

func (m *mockNavigator) AdvanceStep(ctx context.Context, userID string) (domain.NavigationSnapshot, error) {
	return m.advanceStepFn(ctx, userID)
}

func (m *mockNavigator) Snapshot(userID string) domain.NavigationSnapshot {
	if m.snapshotFn == nil {
		return domain.NavigationSnapshot{UserID: userID}
	}
	return m.snapshotFn(userID)
}

func (m *mockNavigator) ContextSummary(userID string, weather *domain.Weather) domain.ContextSummary {
	return m.summaryFn(userID, weather)
}

type mockResolver struct {
	fn func(ctx context.Context, userID, claimed string) (string, error)
}

func (m *mockResolver) ResolveGuardian(ctx context.Context, userID, claimed string) (string, error) {
	if m.fn == nil {
		return claimed, nil
	}
	return m.fn(ctx, userID, claimed)
}

type mockChat struct {
	replyFn func(ctx context.Context, history []domain.ChatMessage, snap domain.NavigationSnapshot, weather *domain.Weather) string
}

func (m *mockChat) Reply(ctx context.Context, history []domain.ChatMessage, snap domain.NavigationSnapshot, weather *domain.Weather) string {
	return m.replyFn(ctx, history, snap, weather)
}

func setupNavigationRouter(nav navigator, chat chatService) *gin.Engine {
	return setupNavigationRouterWithLinks(nav, &mockResolver{}, chat)
}

func setupNavigationRouterWithLinks(nav navigator, guardians guardianResolver, chat chatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewNavigationHandler(nav, guardians, chat).Register(r.Group(""))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartNavigation_Success(t *testing.T) {
	var got service.StartRequest
	nav := &mockNavigator{
		startFn: func(req service.StartRequest) (*service.Session, error) {
			got = req
			return nil, nil
		},
		snapshotFn: func(userID string) domain.NavigationSnapshot {
			return domain.NavigationSnapshot{UserID: userID, Destination: "서울역", CurrentStep: "직진", IsNavigating: true}
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation", map[string]any{
		"destination": "서울역",
		"guardian_id": "guardian-1",
		"steps":       []string{"직진", "좌회전"},
		"route":       []map[string]float64{{"latitude": 37.5665, "longitude": 126.978}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", got.Route.UserID)
	assert.Equal(t, "guardian-1", got.Route.GuardianID)
	assert.True(t, got.LocationGranted)
	require.Len(t, got.Route.Points, 1)
	assert.Equal(t, 37.5665, got.Route.Points[0].Lat)

	var resp navigationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsNavigating)
	assert.Equal(t, "직진", resp.CurrentStep)
	assert.Equal(t, domain.OnRoute, resp.Deviation.State)
}

func TestStartNavigation_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"location denied", fmt.Errorf("start: %w", domain.ErrLocationDenied), http.StatusForbidden},
		{"invalid point", fmt.Errorf("route point 0: %w", domain.ErrInvalidCoordinate), http.StatusBadRequest},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &mockNavigator{
				startFn: func(service.StartRequest) (*service.Session, error) { return nil, tt.err },
			}
			r := setupNavigationRouter(nav, nil)
			w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation", map[string]any{"location_granted": false})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestStartNavigation_PassesPermissionFlag(t *testing.T) {
	var granted bool
	nav := &mockNavigator{
		startFn: func(req service.StartRequest) (*service.Session, error) {
			granted = req.LocationGranted
			return nil, domain.ErrLocationDenied
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation", map[string]any{"location_granted": false})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, granted)
}

func TestStartNavigation_BadBody(t *testing.T) {
	r := setupNavigationRouter(&mockNavigator{}, nil)
	req, _ := http.NewRequest(http.MethodPost, "/users/user-1/navigation", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStopNavigation(t *testing.T) {
	nav := &mockNavigator{
		stopFn: func(userID string) error {
			if userID == "idle" {
				return domain.ErrNoActiveSession
			}
			return nil
		},
	}
	r := setupNavigationRouter(nav, nil)

	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, "/users/user-1/navigation", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodDelete, "/users/idle/navigation", nil).Code)
}

func TestUpdateRoute(t *testing.T) {
	var gotSteps []string
	nav := &mockNavigator{
		setRouteFn: func(userID, destination string, steps []string, points []domain.Coordinate) error {
			gotSteps = steps
			return nil
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodPut, "/users/user-1/navigation/route", map[string]any{
		"steps": []string{"우회전"},
		"route": []map[string]float64{{"latitude": 37.56, "longitude": 126.97}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"우회전"}, gotSteps)
}

func TestNextStep_NoSession(t *testing.T) {
	nav := &mockNavigator{
		advanceStepFn: func(context.Context, string) (domain.NavigationSnapshot, error) {
			return domain.NavigationSnapshot{}, domain.ErrNoActiveSession
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation/next-step", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNextStep_Success(t *testing.T) {
	nav := &mockNavigator{
		advanceStepFn: func(ctx context.Context, userID string) (domain.NavigationSnapshot, error) {
			assert.NotNil(t, ctx)
			return domain.NavigationSnapshot{UserID: userID, CurrentStep: "좌회전", IsNavigating: true}, nil
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation/next-step", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp navigationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "좌회전", resp.CurrentStep)
}

func TestStartNavigation_UsesLinkedGuardian(t *testing.T) {
	var got service.StartRequest
	nav := &mockNavigator{
		startFn: func(req service.StartRequest) (*service.Session, error) {
			got = req
			return nil, nil
		},
	}
	links := &mockResolver{fn: func(_ context.Context, userID, claimed string) (string, error) {
		assert.Equal(t, "user-1", userID)
		assert.Empty(t, claimed)
		return "guardian-9", nil
	}}
	r := setupNavigationRouterWithLinks(nav, links, nil)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation", map[string]any{"destination": "서울역"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "guardian-9", got.Route.GuardianID)
}

func TestStartNavigation_RejectsUnlinkedGuardian(t *testing.T) {
	nav := &mockNavigator{
		startFn: func(service.StartRequest) (*service.Session, error) {
			t.Fatal("session started for an unlinked guardian")
			return nil, nil
		},
	}
	links := &mockResolver{fn: func(context.Context, string, string) (string, error) {
		return "", fmt.Errorf("resolve: %w", domain.ErrGuardianNotLinked)
	}}
	r := setupNavigationRouterWithLinks(nav, links, nil)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/navigation", map[string]any{"guardian_id": "stranger"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetDeviation(t *testing.T) {
	alertAt := time.Unix(1715003456, 0)
	nav := &mockNavigator{
		snapshotFn: func(userID string) domain.NavigationSnapshot {
			return domain.NavigationSnapshot{
				UserID:       userID,
				IsNavigating: true,
				Deviation:    domain.DeviationState{IsDeviated: true, DistanceMeters: 180, LastAlertAt: alertAt},
			}
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodGet, "/users/user-1/deviation", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp deviationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.Deviated, resp.State)
	assert.Equal(t, 180.0, resp.DistanceMeters)
	require.NotNil(t, resp.LastAlertAt)
	assert.Equal(t, int64(1715003456), *resp.LastAlertAt)
}

func TestGetContext(t *testing.T) {
	var gotWeather *domain.Weather
	nav := &mockNavigator{
		summaryFn: func(_ string, weather *domain.Weather) domain.ContextSummary {
			gotWeather = weather
			return domain.ContextSummary{Urgency: domain.UrgencyLow, TimeOfDay: domain.Afternoon}
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodGet, "/users/user-1/context?weather=%EB%A7%91%EC%9D%8C&temp=21.5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotWeather)
	assert.Equal(t, "맑음", gotWeather.Condition)
	require.NotNil(t, gotWeather.TempC)
	assert.Equal(t, 21.5, *gotWeather.TempC)

	var resp domain.ContextSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.UrgencyLow, resp.Urgency)

	w = doJSON(t, r, http.MethodGet, "/users/user-1/context?temp=warm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetContext_NoWeather(t *testing.T) {
	nav := &mockNavigator{
		summaryFn: func(_ string, weather *domain.Weather) domain.ContextSummary {
			assert.Nil(t, weather)
			return domain.ContextSummary{Urgency: domain.UrgencyLow}
		},
	}
	r := setupNavigationRouter(nav, nil)

	w := doJSON(t, r, http.MethodGet, "/users/user-1/context", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChat(t *testing.T) {
	nav := &mockNavigator{
		snapshotFn: func(userID string) domain.NavigationSnapshot {
			return domain.NavigationSnapshot{UserID: userID, Destination: "서울역", IsNavigating: true}
		},
	}
	chat := &mockChat{
		replyFn: func(_ context.Context, history []domain.ChatMessage, snap domain.NavigationSnapshot, weather *domain.Weather) string {
			require.Len(t, history, 1)
			assert.Equal(t, domain.RoleUser, history[0].Role)
			assert.Equal(t, "서울역", snap.Destination)
			require.NotNil(t, weather)
			assert.Equal(t, "비", weather.Condition)
			return "천천히 가세요 😊"
		},
	}
	r := setupNavigationRouter(nav, chat)

	w := doJSON(t, r, http.MethodPost, "/users/user-1/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "어디로 가요?"}},
		"weather":  "비",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "천천히 가세요 😊", resp["reply"])
}
