package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nandanugg/route-guardian/config"
	"github.com/nandanugg/route-guardian/module/core/domain"
)

type options struct {
	userID      string
	guardianID  string
	destination string
	broker      string
	serverURL   string
	interval    time.Duration
	routeFile   string
	osrmURL     string
	source      string
	target      string
	minMovement float64
	driftFrom   int
	driftMeters float64
	logLevel    string
}

type locationMessage struct {
	UserID    string  `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	opts := &options{}
	cmd := &cobra.Command{
		Use:   "publisher",
		Short: "Simulate a navigating device walking a route",
		Long: "Starts a navigation session over HTTP, then publishes location fixes over MQTT " +
			"while walking the route. Use --drift-from to wander off the route and trigger deviation alerts.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.userID, "user", "user-1", "user id to publish as")
	f.StringVar(&opts.guardianID, "guardian", "", "guardian id linked to the trip")
	f.StringVar(&opts.destination, "destination", "", "destination label")
	f.StringVar(&opts.broker, "broker", defaults.MQTTBroker, "MQTT broker URL")
	f.StringVar(&opts.serverURL, "server", "http://localhost:"+defaults.HTTPPort, "route guardian HTTP base URL")
	f.DurationVar(&opts.interval, "interval", defaults.LocationInterval(), "time between location fixes")
	f.StringVar(&opts.routeFile, "route-file", "", "YAML route file")
	f.StringVar(&opts.osrmURL, "osrm", "https://router.project-osrm.org", "OSRM base URL")
	f.StringVar(&opts.source, "source", "", "route source as lat,lon (with --target, uses OSRM)")
	f.StringVar(&opts.target, "target", "", "route target as lat,lon")
	f.Float64Var(&opts.minMovement, "min-movement", defaults.MinMovementMeters, "meters a fix must move before it is reported")
	f.IntVar(&opts.driftFrom, "drift-from", -1, "route point index to start drifting at (-1 disables)")
	f.Float64Var(&opts.driftMeters, "drift-meters", 200, "how far east to drift, in meters")
	f.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "log level")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	logger, err := config.NewLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	route, err := resolveRoute(ctx, opts)
	if err != nil {
		return err
	}
	if opts.destination != "" {
		route.Destination = opts.destination
	}
	if opts.guardianID != "" {
		route.GuardianID = opts.guardianID
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	if err := startNavigation(ctx, httpClient, opts.serverURL, opts.userID, route); err != nil {
		return err
	}
	defer func() {
		if err := stopNavigation(context.Background(), httpClient, opts.serverURL, opts.userID); err != nil {
			logger.Warn("stop navigation", zap.Error(err))
		}
	}()

	client := mqtt.NewClient(mqtt.NewClientOptions().
		AddBroker(opts.broker).
		SetClientID("route-guardian-sim-" + opts.userID))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	// log what the server asks the device to do
	commands := fmt.Sprintf("/nav/user/%s/+", opts.userID)
	if token := client.Subscribe(commands, 1, func(_ mqtt.Client, msg mqtt.Message) {
		if strings.HasSuffix(msg.Topic(), "/location") {
			return
		}
		logger.Info("device command", zap.String("topic", msg.Topic()), zap.ByteString("payload", msg.Payload()))
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", commands, token.Error())
	}

	logger.Info("walking route",
		zap.String("user_id", opts.userID),
		zap.Int("points", len(route.Points)),
		zap.Duration("interval", opts.interval),
		zap.Int("drift_from", opts.driftFrom))

	topic := fmt.Sprintf("/nav/user/%s/location", opts.userID)
	w := newWalker(route.Points, opts.minMovement, opts.driftFrom, opts.driftMeters)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		pos, ok := w.Next()
		if !ok {
			logger.Info("route finished", zap.Int("reported", w.reported))
			return nil
		}

		payload, _ := json.Marshal(locationMessage{
			UserID:    opts.userID,
			Latitude:  pos.Lat,
			Longitude: pos.Lon,
			Timestamp: time.Now().UnixMilli(),
		})
		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Warn("publish failed", zap.Error(err))
		} else {
			logger.Debug("published", zap.String("topic", topic), zap.ByteString("payload", payload))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func resolveRoute(ctx context.Context, opts *options) (*plannedRoute, error) {
	switch {
	case opts.routeFile != "":
		return loadRouteFile(opts.routeFile)
	case opts.source != "" && opts.target != "":
		src, err := parseCoord(opts.source)
		if err != nil {
			return nil, err
		}
		dst, err := parseCoord(opts.target)
		if err != nil {
			return nil, err
		}
		return fetchWalkingRoute(ctx, &http.Client{Timeout: 15 * time.Second}, opts.osrmURL, src, dst)
	default:
		return nil, fmt.Errorf("either --route-file or --source and --target is required")
	}
}

type startRequest struct {
	Destination     string              `json:"destination"`
	GuardianID      string              `json:"guardian_id,omitempty"`
	Steps           []string            `json:"steps"`
	Route           []domain.Coordinate `json:"route"`
	LocationGranted bool                `json:"location_granted"`
}

func startNavigation(ctx context.Context, client *http.Client, serverURL, userID string, route *plannedRoute) error {
	body, err := json.Marshal(startRequest{
		Destination:     route.Destination,
		GuardianID:      route.GuardianID,
		Steps:           route.Steps,
		Route:           route.Points,
		LocationGranted: true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/users/%s/navigation", strings.TrimRight(serverURL, "/"), userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("start navigation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("start navigation: server returned %d", resp.StatusCode)
	}
	return nil
}

func stopNavigation(ctx context.Context, client *http.Client, serverURL, userID string) error {
	url := fmt.Sprintf("%s/users/%s/navigation", strings.TrimRight(serverURL, "/"), userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("stop navigation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("stop navigation: server returned %d", resp.StatusCode)
	}
	return nil
}
