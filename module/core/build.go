package core

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	handler "github.com/nandanugg/route-guardian/module/core/internal/handler/http"
	"github.com/nandanugg/route-guardian/module/core/internal/handler/subscriber"
	"github.com/nandanugg/route-guardian/module/core/internal/observability"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/chat/openai"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database/postgres"
	mqttpub "github.com/nandanugg/route-guardian/module/core/internal/repository/publisher/mqtt"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/route-guardian/module/core/service"
)

type Params struct {
	DB         *sql.DB
	AMQPConn   *amqp.Connection
	MQTTClient mqtt.Client
	Registerer prometheus.Registerer
	Logger     *zap.Logger

	Tuning          service.Tuning
	DispatchTimeout time.Duration
	Location        *time.Location
	Chat            ChatParams
}

// ChatParams configures the assistant backend. Completer, when set, replaces
// the OpenAI-compatible client built from the other fields.
type ChatParams struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	Completer service.ChatCompleter
}

// GuardianQueue is the durable queue guardian event consumers read from.
const GuardianQueue = rabbitmq.QueueName

type Module struct {
	LocationSvc *service.LocationService
	Sessions    *service.SessionManager
	Chat        *service.ChatService
	Links       *service.GuardianLinkService
	Routes      *service.RouteHistoryService

	navigation *handler.NavigationHandler
	guardian   *handler.GuardianHandler
	links      *handler.GuardianLinkHandler
	routes     *handler.RouteHistoryHandler
	subscriber *subscriber.LocationSubscriber
}

func Build(p Params) (*Module, error) {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	metrics, err := observability.NewTrackingCollector(p.Registerer)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	locationRepo := postgres.NewLocationRepo(p.DB)
	alertRepo := postgres.NewAlertRepo(p.DB)
	shareRepo := postgres.NewShareRepo(p.DB)
	linkRepo := postgres.NewGuardianLinkRepo(p.DB)
	historyRepo := postgres.NewRouteHistoryRepo(p.DB)

	guardianPub, err := rabbitmq.NewGuardianPublisher(p.AMQPConn)
	if err != nil {
		return nil, fmt.Errorf("guardian publisher: %w", err)
	}
	device := mqttpub.NewDevicePublisher(p.MQTTClient)

	clock := service.SystemClock()
	fanout := service.NewAlertFanout(service.AlertChannels{
		Voice:    device,
		Push:     device,
		Guardian: guardianPub,
		Records:  alertRepo,
		Shares:   shareRepo,
	}, clock, p.Logger.Named("alerts"), metrics)

	sessions := service.NewSessionManager(fanout, service.ManagerConfig{
		Tuning:          p.Tuning,
		Clock:           clock,
		Location:        p.Location,
		DispatchTimeout: p.DispatchTimeout,
	}, p.Logger.Named("sessions"), metrics)

	completer := p.Chat.Completer
	if completer == nil {
		completer = openai.NewClient(openai.Config{
			APIKey:  p.Chat.APIKey,
			BaseURL: p.Chat.BaseURL,
			Model:   p.Chat.Model,
		}, &http.Client{})
	}
	chat := service.NewChatService(completer, service.ChatConfig{
		Timeout:  p.Chat.Timeout,
		Clock:    clock,
		Location: p.Location,
	}, p.Logger.Named("chat"), metrics)

	locationSvc := service.NewLocationService(locationRepo, shareRepo, alertRepo)
	links := service.NewGuardianLinkService(linkRepo, clock)
	routes := service.NewRouteHistoryService(historyRepo, clock)

	return &Module{
		LocationSvc: locationSvc,
		Sessions:    sessions,
		Chat:        chat,
		Links:       links,
		Routes:      routes,
		navigation:  handler.NewNavigationHandler(sessions, links, chat),
		guardian:    handler.NewGuardianHandler(locationSvc),
		links:       handler.NewGuardianLinkHandler(links),
		routes:      handler.NewRouteHistoryHandler(routes),
		subscriber:  subscriber.NewLocationSubscriber(p.MQTTClient, locationSvc, sessions, p.Logger.Named("subscriber")),
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.navigation.Register(r)
	m.guardian.Register(r)
	m.links.Register(r)
	m.routes.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

func (m *Module) StopSubscribers() error {
	return m.subscriber.Stop()
}

// EnsureSchema creates the tables the module writes to.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	return postgres.EnsureSchema(ctx, db)
}

// DeclareGuardianTopology declares the exchange and queue guardian events
// flow through.
func DeclareGuardianTopology(ch *amqp.Channel) error {
	return rabbitmq.Declare(ch)
}
