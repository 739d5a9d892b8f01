/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bobbylabs/bobby-relay/internal/logging"
)

// NATS subjects for downstream consumers
const (
	SubjectVoiceCommands  = "bobby.voice.commands"
	SubjectVoiceResponses = "bobby.voice.responses"
)

// CommandEvent is published when a wake word is admitted to dispatch.
type CommandEvent struct {
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	Transcription string `json:"transcription"`
	Command       string `json:"command"`
	Timestamp     int64  `json:"timestamp"`
}

// ResponseEvent is published once the generation backend replied (or the
// fallback was used).
type ResponseEvent struct {
	RequestID    string `json:"request_id"`
	UserID       string `json:"user_id"`
	ResponseText string `json:"response_text"`
	Fallback     bool   `json:"fallback"`
	Timestamp    int64  `json:"timestamp"`
}

// NATSService publishes voice events for downstream consumers. It is
// entirely optional; a nil *NATSService is safe to use.
type NATSService struct {
	conn *nats.Conn
	url  string
}

// NewNATSService creates a NATS service targeting the given URL.
func NewNATSService(url string) *NATSService {
	return &NATSService{url: url}
}

// Connect establishes the connection to the NATS server.
func (ns *NATSService) Connect(maxReconnect int, reconnectWait time.Duration) error {
	logging.Sugar.Infow("🔌 Connecting to NATS", "url", ns.url)

	opts := []nats.Option{
		nats.Name("bobby-relay"),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔄 NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.Sugar.Infow("✅ Connected to NATS server", "url", conn.ConnectedUrl())
	return nil
}

// PublishCommand publishes an admitted command event.
func (ns *NATSService) PublishCommand(event *CommandEvent) error {
	return ns.publish(SubjectVoiceCommands, event)
}

// PublishResponse publishes a response event.
func (ns *NATSService) PublishResponse(event *ResponseEvent) error {
	return ns.publish(SubjectVoiceResponses, event)
}

func (ns *NATSService) publish(subject string, event interface{}) error {
	if ns == nil || ns.conn == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}

// SubscribeToCommands subscribes to admitted command events. Used by
// downstream consumers and integration tests.
func (ns *NATSService) SubscribeToCommands(handler func(*CommandEvent)) (*nats.Subscription, error) {
	if ns == nil || ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectVoiceCommands, func(msg *nats.Msg) {
		var event CommandEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.LogError(err, "Error unmarshaling command event")
			return
		}
		handler(&event)
	})
}

// Close drains and closes the connection.
func (ns *NATSService) Close() {
	if ns == nil || ns.conn == nil {
		return
	}
	ns.conn.Close()
}
