package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerPrefetch = 8

// AMQPQueue publishes tasks to a durable topic exchange. The task kind is the
// routing key, so a future worker split can bind narrower patterns.
type AMQPQueue struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPQueue(url, exchange string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: dialing broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue: opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: declaring exchange: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, exchange: exchange}, nil
}

var _ Queue = (*AMQPQueue)(nil)

func (q *AMQPQueue) Enqueue(ctx context.Context, task Task) error {
	err := q.ch.PublishWithContext(ctx, q.exchange, task.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         task.Payload,
	})
	if err != nil {
		return fmt.Errorf("queue: publishing %s: %w", task.Kind, err)
	}
	return nil
}

func (q *AMQPQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// AMQPConsumer binds a durable queue to the task exchange and feeds
// deliveries through a Dispatcher. Ack on success, Nack with requeue on
// failure, so a crashed handler redelivers the task.
type AMQPConsumer struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewAMQPConsumer(url, exchange, queueName string, dispatcher *Dispatcher, logger *slog.Logger) (*AMQPConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: dialing broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue: opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: declaring exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: declaring queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "task.#", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: binding queue: %w", err)
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: setting qos: %w", err)
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: q.Name, dispatcher: dispatcher, logger: logger}, nil
}

// Run consumes deliveries until the context is canceled or the channel
// closes.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue: starting consume: %w", err)
	}

	c.logger.Info("task consumer running", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			task := Task{Kind: d.RoutingKey, Payload: json.RawMessage(d.Body)}
			if err := c.dispatcher.Handle(ctx, task); err != nil {
				c.logger.Error("task handling failed, requeueing",
					slog.String("kind", task.Kind),
					slog.String("error", err.Error()))
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AMQPConsumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
