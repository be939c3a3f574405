package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pipeline-guard/internal/domain"
)

// Actuator sends a mitigation command to field systems and returns the
// message shown to the operator.
type Actuator interface {
	Dispatch(ctx context.Context, inc *domain.Incident, action domain.MitigationAction) (string, error)
}

// MitigationMessage is the operator-facing confirmation for an action.
func MitigationMessage(action domain.MitigationAction) string {
	switch action {
	case domain.ActionThrottle:
		return "Valves set to 50%. Loss rate minimized."
	case domain.ActionShutoff:
		return "SHUTOFF SIGNAL SENT. SECTOR ISOLATED. WATER SUPPLY CUT."
	case domain.ActionDispatch:
		return "GPS Coordinates sent to Field Team Alpha. ETA: 15 mins."
	default:
		return ""
	}
}

// LogActuator only logs the command. Used when no broker is configured.
type LogActuator struct {
	logger *log.Logger
}

// NewLogActuator creates a LogActuator.
func NewLogActuator(logger *log.Logger) *LogActuator {
	if logger == nil {
		logger = log.Default()
	}
	return &LogActuator{logger: logger}
}

// Dispatch implements Actuator.
func (a *LogActuator) Dispatch(_ context.Context, inc *domain.Incident, action domain.MitigationAction) (string, error) {
	msg := MitigationMessage(action)
	if action == domain.ActionThrottle {
		a.logger.Printf("Incident %s: Valves throttling to 50%%... Pressure reduction initiated.", inc.IncidentID)
	}
	a.logger.Printf("Incident %s: %s %s", inc.IncidentID, action, msg)
	return msg, nil
}

// Publisher is the subset of *amqp.Channel used by AMQPActuator.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var _ Publisher = (*amqp.Channel)(nil)

// MitigationCommand is the message body published for each action.
type MitigationCommand struct {
	IncidentID string    `json:"incident_id"`
	Action     string    `json:"action"`
	Status     string    `json:"prediction_status"`
	Class      int       `json:"prediction_class"`
	Pressure   float64   `json:"pressure"`
	FlowRate   float64   `json:"flow_rate"`
	SampleTime time.Time `json:"sample_time"`
	IssuedAt   time.Time `json:"issued_at"`
}

// AMQPActuator publishes mitigation commands to a topic exchange with
// routing key "mitigation.<action>".
type AMQPActuator struct {
	publisher Publisher
	exchange  string
	logger    *log.Logger
}

// DefaultExchange is the exchange mitigation commands are published to.
const DefaultExchange = "pipeline.mitigations"

// NewAMQPActuator opens a channel, declares the exchange and returns an actuator
// publishing to it.
func NewAMQPActuator(conn *amqp.Connection, exchange string, logger *log.Logger) (*AMQPActuator, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return NewAMQPActuatorWithPublisher(ch, exchange, logger), nil
}

// NewAMQPActuatorWithPublisher wraps an existing publisher.
func NewAMQPActuatorWithPublisher(p Publisher, exchange string, logger *log.Logger) *AMQPActuator {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AMQPActuator{publisher: p, exchange: exchange, logger: logger}
}

// RoutingKey returns the routing key for an action.
func RoutingKey(action domain.MitigationAction) string {
	return "mitigation." + strings.ToLower(string(action))
}

// Dispatch implements Actuator.
func (a *AMQPActuator) Dispatch(ctx context.Context, inc *domain.Incident, action domain.MitigationAction) (string, error) {
	body, err := json.Marshal(MitigationCommand{
		IncidentID: inc.IncidentID,
		Action:     string(action),
		Status:     inc.Sample.Status,
		Class:      int(inc.Sample.Class),
		Pressure:   inc.Sample.Pressure,
		FlowRate:   inc.Sample.FlowRate,
		SampleTime: inc.Sample.Time,
		IssuedAt:   time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal command: %w", err)
	}

	err = a.publisher.PublishWithContext(ctx,
		a.exchange,
		RoutingKey(action),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    inc.IncidentID + ":" + string(action),
			Body:         body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", RoutingKey(action), err)
	}

	a.logger.Printf("Incident %s: published %s to %s", inc.IncidentID, action, a.exchange)
	return MitigationMessage(action), nil
}
