package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TrackingCollector bundles the Prometheus metrics for deviation tracking,
// alert fan-out and assistant chat. A nil collector records nothing.
type TrackingCollector struct {
	Samples        *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	AlertChannels  *prometheus.CounterVec
	ChatRequests   *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// NewTrackingCollector registers the metrics against reg, defaulting to the
// global registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func NewTrackingCollector(reg prometheus.Registerer) (*TrackingCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	samples, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_guardian_samples_total",
		Help: "Location samples processed, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_guardian_transitions_total",
		Help: "Deviation state machine transitions, labeled by source and target state.",
	}, []string{"from", "to"}))
	if err != nil {
		return nil, err
	}

	channels, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_guardian_alert_channel_total",
		Help: "Alert channel attempts, labeled by channel and result.",
	}, []string{"channel", "result"}))
	if err != nil {
		return nil, err
	}

	chat, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_guardian_chat_requests_total",
		Help: "Assistant chat round trips, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "route_guardian_active_sessions",
		Help: "Navigation sessions currently being tracked.",
	})
	if err := reg.Register(active); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register route_guardian_active_sessions: %w", err)
		}
		existing, ok := are.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, fmt.Errorf("route_guardian_active_sessions already registered with a different type")
		}
		active = existing
	}

	return &TrackingCollector{
		Samples:        samples,
		Transitions:    transitions,
		AlertChannels:  channels,
		ChatRequests:   chat,
		ActiveSessions: active,
	}, nil
}

func (c *TrackingCollector) ObserveSample(outcome string) {
	if c == nil {
		return
	}
	c.Samples.WithLabelValues(outcome).Inc()
}

func (c *TrackingCollector) ObserveTransition(from, to string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(from, to).Inc()
}

func (c *TrackingCollector) ObserveChannel(channel string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.AlertChannels.WithLabelValues(channel, result).Inc()
}

func (c *TrackingCollector) ObserveChat(outcome string) {
	if c == nil {
		return
	}
	c.ChatRequests.WithLabelValues(outcome).Inc()
}

func (c *TrackingCollector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("counter already registered with a different type")
		}
		return existing, nil
	}
	return cv, nil
}
