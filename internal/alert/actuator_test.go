package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-guard/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func testIncident() *domain.Incident {
	return &domain.Incident{
		IncidentID: "3vQB7B6MrGQZaxCuFg4oh",
		Sample: domain.ClassifiedSample{
			Time:     time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
			Pressure: 1.2,
			FlowRate: 61.5,
			Status:   domain.StatusMajorLeak,
			Class:    domain.SeverityMajorLeak,
		},
		OpenedAt: fixedNow,
		Outcome:  domain.OutcomeOpen,
	}
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "mitigation.throttle", RoutingKey(domain.ActionThrottle))
	assert.Equal(t, "mitigation.shutoff", RoutingKey(domain.ActionShutoff))
	assert.Equal(t, "mitigation.dispatch", RoutingKey(domain.ActionDispatch))
}

func TestMitigationMessage(t *testing.T) {
	assert.Equal(t, "Valves set to 50%. Loss rate minimized.", MitigationMessage(domain.ActionThrottle))
	assert.Contains(t, MitigationMessage(domain.ActionShutoff), "SECTOR ISOLATED")
	assert.Contains(t, MitigationMessage(domain.ActionDispatch), "Field Team Alpha")
	assert.Empty(t, MitigationMessage("UNKNOWN"))
}

func TestLogActuator(t *testing.T) {
	var buf bytes.Buffer
	act := NewLogActuator(log.New(&buf, "", 0))

	msg, err := act.Dispatch(context.Background(), testIncident(), domain.ActionThrottle)
	require.NoError(t, err)
	assert.Equal(t, MitigationMessage(domain.ActionThrottle), msg)
	assert.Contains(t, buf.String(), "Valves throttling to 50%... Pressure reduction initiated.")
	assert.Contains(t, buf.String(), "3vQB7B6MrGQZaxCuFg4oh")
}

func TestAMQPActuator_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	act := NewAMQPActuatorWithPublisher(pub, "", quietLogger())

	msg, err := act.Dispatch(context.Background(), testIncident(), domain.ActionShutoff)
	require.NoError(t, err)
	assert.Equal(t, MitigationMessage(domain.ActionShutoff), msg)

	require.Len(t, pub.sent, 1)
	got := pub.sent[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, "mitigation.shutoff", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), got.msg.DeliveryMode)
	assert.Equal(t, "3vQB7B6MrGQZaxCuFg4oh:SHUTOFF", got.msg.MessageId)

	var cmd MitigationCommand
	require.NoError(t, json.Unmarshal(got.msg.Body, &cmd))
	assert.Equal(t, "SHUTOFF", cmd.Action)
	assert.Equal(t, "3vQB7B6MrGQZaxCuFg4oh", cmd.IncidentID)
	assert.Equal(t, 2, cmd.Class)
	assert.Equal(t, domain.StatusMajorLeak, cmd.Status)
	assert.InDelta(t, 61.5, cmd.FlowRate, 1e-9)
}

func TestAMQPActuator_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	act := NewAMQPActuatorWithPublisher(pub, "ops", quietLogger())

	_, err := act.Dispatch(context.Background(), testIncident(), domain.ActionDispatch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mitigation.dispatch")
}

func TestMachine_WithAMQPActuator(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMachine(Options{
		Actuator: NewAMQPActuatorWithPublisher(pub, "ops", quietLogger()),
		Logger:   quietLogger(),
	})
	ctx := context.Background()

	m.Observe(ctx, sample(5, domain.SeverityMajorLeak))
	for i := 0; i < 2; i++ {
		_, err := m.Mitigate(ctx, domain.ActionThrottle)
		require.NoError(t, err)
	}

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "ops", pub.sent[0].exchange)
}
