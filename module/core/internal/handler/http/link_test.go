package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type mockLinkService struct {
	createFn func(ctx context.Context, userID string) (*domain.GuardianLink, error)
	getFn    func(ctx context.Context, userID string) (*domain.GuardianLink, error)
	redeemFn func(ctx context.Context, guardianID, code string) (*domain.GuardianLink, error)
	listFn   func(ctx context.Context, guardianID string) ([]domain.GuardianLink, error)
}

func (m *mockLinkService) CreateCode(ctx context.Context, userID string) (*domain.GuardianLink, error) {
	return m.createFn(ctx, userID)
}

func (m *mockLinkService) GetLink(ctx context.Context, userID string) (*domain.GuardianLink, error) {
	return m.getFn(ctx, userID)
}

func (m *mockLinkService) Redeem(ctx context.Context, guardianID, code string) (*domain.GuardianLink, error) {
	return m.redeemFn(ctx, guardianID, code)
}

func (m *mockLinkService) ListLinkedUsers(ctx context.Context, guardianID string) ([]domain.GuardianLink, error) {
	return m.listFn(ctx, guardianID)
}

func setupLinkRouter(svc linkService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGuardianLinkHandler(svc).Register(r.Group(""))
	return r
}

func TestCreateLinkCode(t *testing.T) {
	created := time.Unix(1715000000, 0)
	r := setupLinkRouter(&mockLinkService{createFn: func(_ context.Context, userID string) (*domain.GuardianLink, error) {
		return &domain.GuardianLink{UserID: userID, Code: "AB12CD", Status: domain.LinkPending, CreatedAt: created}, nil
	}})

	w := doJSON(t, r, http.MethodPost, "/users/user-1/guardian-link", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp linkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AB12CD", resp.Code)
	assert.Equal(t, domain.LinkPending, resp.Status)
	assert.Equal(t, int64(1715000000), resp.CreatedAt)
	assert.Nil(t, resp.LinkedAt)
}

func TestGetLink_NotFound(t *testing.T) {
	r := setupLinkRouter(&mockLinkService{getFn: func(context.Context, string) (*domain.GuardianLink, error) {
		return nil, domain.ErrNotFound
	}})

	w := doJSON(t, r, http.MethodGet, "/users/user-1/guardian-link", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedeemLink(t *testing.T) {
	linkedAt := time.Unix(1715003456, 0)
	var gotGuardian, gotCode string
	r := setupLinkRouter(&mockLinkService{redeemFn: func(_ context.Context, guardianID, code string) (*domain.GuardianLink, error) {
		gotGuardian, gotCode = guardianID, code
		return &domain.GuardianLink{UserID: "user-1", Code: "AB12CD", GuardianID: guardianID, Status: domain.LinkActive, LinkedAt: &linkedAt}, nil
	}})

	w := doJSON(t, r, http.MethodPost, "/guardians/guardian-1/links", map[string]string{"code": "ab12cd"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guardian-1", gotGuardian)
	assert.Equal(t, "ab12cd", gotCode)

	var resp linkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.UserID)
	assert.Empty(t, resp.Code, "redeemed codes are not echoed")
	require.NotNil(t, resp.LinkedAt)
	assert.Equal(t, int64(1715003456), *resp.LinkedAt)
}

func TestRedeemLink_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad code", domain.ErrInvalidLinkCode, http.StatusBadRequest},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupLinkRouter(&mockLinkService{redeemFn: func(context.Context, string, string) (*domain.GuardianLink, error) {
				return nil, tt.err
			}})
			w := doJSON(t, r, http.MethodPost, "/guardians/guardian-1/links", map[string]string{"code": "ZZZZZZ"})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestListLinkedUsers(t *testing.T) {
	r := setupLinkRouter(&mockLinkService{listFn: func(_ context.Context, guardianID string) ([]domain.GuardianLink, error) {
		return []domain.GuardianLink{
			{UserID: "user-1", Code: "AB12CD", GuardianID: guardianID, Status: domain.LinkActive},
			{UserID: "user-2", Code: "QW34ER", GuardianID: guardianID, Status: domain.LinkActive},
		}, nil
	}})

	w := doJSON(t, r, http.MethodGet, "/guardians/guardian-1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []linkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "user-2", resp[1].UserID)
	assert.Empty(t, resp[0].Code)
}
