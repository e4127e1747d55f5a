package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

const (
	LinkCodeLength   = 6
	linkCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	linkCodeAttempts = 5
)

// GuardianLinkService pairs users with guardians through short one-time
// codes. The user generates a code and the guardian redeems it.
type GuardianLinkService struct {
	links   database.GuardianLinkRepository
	clock   Clock
	newCode func() (string, error)
}

func NewGuardianLinkService(links database.GuardianLinkRepository, clock Clock) *GuardianLinkService {
	if clock == nil {
		clock = SystemClock()
	}
	return &GuardianLinkService{links: links, clock: clock, newCode: randomLinkCode}
}

// CreateCode issues a new pending code for the user. Any existing link is
// replaced.
func (s *GuardianLinkService) CreateCode(ctx context.Context, userID string) (*domain.GuardianLink, error) {
	for i := 0; i < linkCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate link code: %w", err)
		}
		link := &domain.GuardianLink{
			UserID:    userID,
			Code:      code,
			Status:    domain.LinkPending,
			CreatedAt: s.clock.Now(),
		}
		err = s.links.CreateCode(ctx, link)
		if errors.Is(err, domain.ErrLinkCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store link code for %s: %w", userID, err)
		}
		return link, nil
	}
	return nil, fmt.Errorf("store link code for %s: %w", userID, domain.ErrLinkCodeTaken)
}

// Redeem links guardianID to the owner of code. Codes are case-insensitive.
func (s *GuardianLinkService) Redeem(ctx context.Context, guardianID, code string) (*domain.GuardianLink, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if guardianID == "" || !validLinkCode(code) {
		return nil, domain.ErrInvalidLinkCode
	}
	return s.links.Redeem(ctx, code, guardianID, s.clock.Now())
}

func (s *GuardianLinkService) GetLink(ctx context.Context, userID string) (*domain.GuardianLink, error) {
	return s.links.GetByUser(ctx, userID)
}

// LinkedGuardian returns the guardian linked to userID, or "" when the user
// has none yet.
func (s *GuardianLinkService) LinkedGuardian(ctx context.Context, userID string) (string, error) {
	link, err := s.links.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !link.Linked() {
		return "", nil
	}
	return link.GuardianID, nil
}

// ResolveGuardian picks the guardian a new navigation session reports to.
// A claimed guardian must match the redeemed link.
func (s *GuardianLinkService) ResolveGuardian(ctx context.Context, userID, claimed string) (string, error) {
	linked, err := s.LinkedGuardian(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve guardian for %s: %w", userID, err)
	}
	if claimed != "" && claimed != linked {
		return "", fmt.Errorf("guardian %s for %s: %w", claimed, userID, domain.ErrGuardianNotLinked)
	}
	return linked, nil
}

func (s *GuardianLinkService) ListLinkedUsers(ctx context.Context, guardianID string) ([]domain.GuardianLink, error) {
	return s.links.ListByGuardian(ctx, guardianID)
}

func validLinkCode(code string) bool {
	if len(code) != LinkCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(linkCodeAlphabet, r) {
			return false
		}
	}
	return true
}

func randomLinkCode() (string, error) {
	size := big.NewInt(int64(len(linkCodeAlphabet)))
	b := make([]byte, LinkCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = linkCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
