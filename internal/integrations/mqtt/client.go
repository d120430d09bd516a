package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"echoplex-server/config"
	"echoplex-server/internal/core/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Publisher sends match alerts to an MQTT broker so operations channels can
// react to probable sightings. It only publishes; nothing in the scan path
// consumes inbound MQTT.
type Publisher struct {
	config config.MQTTConfig
	client mqtt.Client
}

// Alert is the payload published for a confirmed match.
type Alert struct {
	CaseID     string    `json:"caseId"`
	FullName   string    `json:"fullName"`
	Confidence float64   `json:"confidence"`
	PhotoURL   string    `json:"photoUrl,omitempty"`
	Source     string    `json:"source"` // "image" or "video"
	Hits       int       `json:"hits,omitempty"`
	Position   string    `json:"position,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewPublisher creates a new MQTT alert publisher.
func NewPublisher(cfg config.MQTTConfig) *Publisher {
	return &Publisher{config: cfg}
}

// Start connects to the broker. A connection failure is not fatal: alerts
// degrade to log entries until the auto-reconnect succeeds.
func (p *Publisher) Start() error {
	if !p.config.Enabled {
		log.Info("MQTT alerting is disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(p.config.ClientID)

	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Infof("Connected to MQTT broker at %s", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Errorf("MQTT connection lost: %v", err)
	})

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	p.client = mqtt.NewClient(opts)

	log.Infof("Connecting to MQTT broker at %s", brokerURL)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker: %v", token.Error())
		return token.Error()
	}
	return nil
}

// Stop disconnects from the broker.
func (p *Publisher) Stop() {
	if p.client != nil && p.client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		p.client.Disconnect(250)
	}
}

// IsConnected reports whether the publisher currently has a broker connection.
func (p *Publisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

// PublishImageMatches raises alerts for single-image matches that reach the
// configured minimum confidence.
func (p *Publisher) PublishImageMatches(matches []models.ScoredMatch) {
	for _, m := range matches {
		if m.Confidence < p.config.MinConfidence {
			continue
		}
		p.publishAlert(Alert{
			CaseID:     m.CaseID,
			FullName:   m.FullName,
			Confidence: m.Confidence,
			PhotoURL:   m.PhotoURL,
			Source:     "image",
			Timestamp:  time.Now(),
		})
	}
}

// PublishVideoMatches raises alerts for aggregated video matches that reach
// the configured minimum confidence.
func (p *Publisher) PublishVideoMatches(matches []models.AggregatedMatch) {
	for _, m := range matches {
		if m.BestConfidence < p.config.MinConfidence {
			continue
		}
		p.publishAlert(Alert{
			CaseID:     m.CaseID,
			FullName:   m.FullName,
			Confidence: m.BestConfidence,
			PhotoURL:   m.PhotoURL,
			Source:     "video",
			Hits:       m.Hits,
			Position:   string(m.Position),
			Timestamp:  time.Now(),
		})
	}
}

// publishAlert sends one alert; failures are logged, never propagated into
// the scan response.
func (p *Publisher) publishAlert(alert Alert) {
	if !p.IsConnected() {
		log.WithField("caseId", alert.CaseID).Debug("MQTT not connected, alert dropped")
		return
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		log.Errorf("Failed to marshal MQTT alert: %v", err)
		return
	}

	token := p.client.Publish(p.config.AlertTopic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Errorf("Failed to publish alert to topic %s: %v", p.config.AlertTopic, token.Error())
		return
	}

	log.WithFields(log.Fields{
		"caseId":     alert.CaseID,
		"confidence": alert.Confidence,
	}).Info("Published match alert")
}
