package config

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// NewMQTT connects to the broker. onConnect runs after every successful
// connection, including automatic reconnects, so subscriptions can be
// restored there.
func NewMQTT(cfg *Config, logger *zap.Logger, onConnect func(mqtt.Client)) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("mqtt connected", zap.String("broker", cfg.MQTTBroker))
			if onConnect != nil {
				onConnect(c)
			}
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30*time.Second) {
		return nil, fmt.Errorf("mqtt connect: timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}
