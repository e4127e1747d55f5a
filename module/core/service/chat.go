package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/observability"
)

// DefaultChatTimeout bounds one assistant round trip.
const DefaultChatTimeout = 15 * time.Second

const systemPrompt = `당신은 발달장애인과 노인의 대중교통 이동을 돕는 친절한 AI 도우미 "루미"입니다.

규칙:
- 항상 3문장 이내로 짧게 답변
- 쉬운 단어만 사용 (초등학생도 이해할 수 있게)
- 친근하고 안심시키는 말투 사용
- 이모지를 적절히 사용
- 위치와 경로 관련 질문에 집중`

// Fallback replies shown to the user when the assistant cannot answer.
const (
	FallbackTimeout     = "답변이 늦어지고 있어요. 잠시 후 다시 물어봐 주세요 ⏳"
	FallbackRateLimited = "지금 질문이 많아서 조금 바빠요. 잠깐 뒤에 다시 말해줄래요? 🙏"
	FallbackServer      = "도우미에 문제가 생겼어요. 잠시 후 다시 시도해주세요 🔧"
	FallbackGeneric     = "인터넷 연결이 불안정해요. 잠시 후 다시 시도해주세요 📶"
	FallbackEmpty       = "미안해요, 다시 말해줄래요? 🙏"
)

// ChatCompleter sends a full conversation, system message first, and returns
// the assistant's reply.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

type ChatService struct {
	completer ChatCompleter
	timeout   time.Duration
	clock     Clock
	location  *time.Location
	logger    *zap.Logger
	metrics   *observability.TrackingCollector
}

type ChatConfig struct {
	Timeout  time.Duration
	Clock    Clock
	Location *time.Location
}

func NewChatService(completer ChatCompleter, cfg ChatConfig, logger *zap.Logger, metrics *observability.TrackingCollector) *ChatService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChatTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		completer: completer,
		timeout:   cfg.Timeout,
		clock:     cfg.Clock,
		location:  cfg.Location,
		logger:    logger,
		metrics:   metrics,
	}
}

// Reply answers the latest user message with the navigation context folded
// into the system prompt. It always returns text: a failed round trip yields
// one of the fallback replies.
func (s *ChatService) Reply(ctx context.Context, history []domain.ChatMessage, snap domain.NavigationSnapshot, weather *domain.Weather) string {
	summary := BuildContextSummary(snap, weather, s.clock.Now().In(s.location))

	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: systemPrompt + "\n" + AIContextPrefix(summary),
	})
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, m)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.completer.Complete(ctx, messages)
	if err != nil {
		outcome, fallback := classifyChatError(ctx, err)
		s.metrics.ObserveChat(outcome)
		s.logger.Warn("assistant chat failed",
			zap.String("user_id", snap.UserID),
			zap.String("outcome", outcome),
			zap.String("urgency", string(summary.Urgency)),
			zap.Error(err))
		return fallback
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.metrics.ObserveChat("empty")
		return FallbackEmpty
	}
	s.metrics.ObserveChat("ok")
	return reply
}

func classifyChatError(ctx context.Context, err error) (string, string) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "timeout", FallbackTimeout
	case errors.Is(err, domain.ErrChatRateLimited):
		return "rate_limited", FallbackRateLimited
	case errors.Is(err, domain.ErrChatServer):
		return "server_error", FallbackServer
	default:
		return "error", FallbackGeneric
	}
}
