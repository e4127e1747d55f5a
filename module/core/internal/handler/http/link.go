package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type linkService interface {
	CreateCode(ctx context.Context, userID string) (*domain.GuardianLink, error)
	GetLink(ctx context.Context, userID string) (*domain.GuardianLink, error)
	Redeem(ctx context.Context, guardianID, code string) (*domain.GuardianLink, error)
	ListLinkedUsers(ctx context.Context, guardianID string) ([]domain.GuardianLink, error)
}

type redeemLinkRequest struct {
	Code string `json:"code"`
}

type linkResponse struct {
	UserID     string            `json:"user_id"`
	Code       string            `json:"guardian_code,omitempty"`
	GuardianID string            `json:"guardian_id,omitempty"`
	Status     domain.LinkStatus `json:"status"`
	CreatedAt  int64             `json:"created_at"`
	LinkedAt   *int64            `json:"linked_at,omitempty"`
}

// GuardianLinkHandler lets a user hand out a link code and a guardian redeem it.
type GuardianLinkHandler struct {
	links linkService
}

func NewGuardianLinkHandler(links linkService) *GuardianLinkHandler {
	return &GuardianLinkHandler{links: links}
}

func (h *GuardianLinkHandler) Register(r *gin.RouterGroup) {
	r.POST("/users/:user_id/guardian-link", h.CreateCode)
	r.GET("/users/:user_id/guardian-link", h.GetLink)
	r.POST("/guardians/:guardian_id/links", h.Redeem)
	r.GET("/guardians/:guardian_id/users", h.ListUsers)
}

func (h *GuardianLinkHandler) CreateCode(c *gin.Context) {
	link, err := h.links.CreateCode(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err, "failed to create link code")
		return
	}
	c.JSON(http.StatusCreated, toLinkResponse(link, true))
}

func (h *GuardianLinkHandler) GetLink(c *gin.Context) {
	link, err := h.links.GetLink(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no guardian link"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch guardian link"})
		return
	}
	c.JSON(http.StatusOK, toLinkResponse(link, true))
}

func (h *GuardianLinkHandler) Redeem(c *gin.Context) {
	var req redeemLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	link, err := h.links.Redeem(c.Request.Context(), c.Param("guardian_id"), req.Code)
	if err != nil {
		writeError(c, err, "failed to link guardian")
		return
	}
	c.JSON(http.StatusOK, toLinkResponse(link, false))
}

func (h *GuardianLinkHandler) ListUsers(c *gin.Context) {
	links, err := h.links.ListLinkedUsers(c.Request.Context(), c.Param("guardian_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch linked users"})
		return
	}

	results := make([]linkResponse, len(links))
	for i := range links {
		results[i] = toLinkResponse(&links[i], false)
	}
	c.JSON(http.StatusOK, results)
}

// toLinkResponse hides the code from guardians once it has been redeemed.
func toLinkResponse(l *domain.GuardianLink, withCode bool) linkResponse {
	resp := linkResponse{
		UserID:     l.UserID,
		GuardianID: l.GuardianID,
		Status:     l.Status,
		CreatedAt:  l.CreatedAt.Unix(),
	}
	if withCode {
		resp.Code = l.Code
	}
	if l.LinkedAt != nil {
		ts := l.LinkedAt.Unix()
		resp.LinkedAt = &ts
	}
	return resp
}
