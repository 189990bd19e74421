package broker

import (
	"context"
	"encoding/json"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var _ Producer = &AMQPBroker{}
var _ Consumer = &AMQPBroker{}

const (
	checkoutExchange   string = "checkout_completed"
	checkoutRoutingKey        = "subscription"
	checkoutQueue             = "subscription_checkout"
)

// AMQPBroker describes a message broker via RabbitMQ
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a Message Broker over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupCheckoutExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for checkout events")
	}

	return broker, nil
}

func (a *AMQPBroker) setupCheckoutExchange() error {
	return a.channel.ExchangeDeclare(
		checkoutExchange, // name
		"direct",         // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}

func (a *AMQPBroker) publishViaRoutingKey(exchange, routingKey string, body []byte) error {
	return a.channel.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// SendCheckoutCompleted publishes a finished checkout for the engine to pick up
func (a *AMQPBroker) SendCheckoutCompleted(p *CheckoutCompletedEvent) error {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode message into bytes")
	}
	if err := a.publishViaRoutingKey(checkoutExchange, checkoutRoutingKey, jsonBytes); err != nil {
		return extErrors.Wrap(err, "Cannot publish checkout event")
	}
	return nil
}

func (a *AMQPBroker) setupQueue(qName string) error {
	_, err := a.channel.QueueDeclare(
		qName,
		true,
		false,
		false,
		false,
		nil,
	)
	return err
}

func (a *AMQPBroker) bindAndGetMsgChan(qName, exchange, routingKey string) (<-chan amqp.Delivery, error) {
	if err := a.channel.QueueBind(
		qName,
		routingKey,
		exchange,
		false,
		nil,
	); err != nil {
		return nil, err
	}
	msgChan, err := a.channel.Consume(
		qName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	return msgChan, err
}

// ReceiveCheckoutCompleted returns a channel of decoded checkout events.
// Undecodable deliveries are dead-lettered rather than redelivered forever.
func (a *AMQPBroker) ReceiveCheckoutCompleted(ctx context.Context) (<-chan *CheckoutCompletedEvent, error) {
	if err := a.setupQueue(checkoutQueue); err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup queue")
	}
	msgChan, err := a.bindAndGetMsgChan(checkoutQueue, checkoutExchange, checkoutRoutingKey)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup consumer")
	}
	rChan := make(chan *CheckoutCompletedEvent)
	go pumpCheckoutEvents(ctx, msgChan, rChan)
	return rChan, nil
}

// pumpCheckoutEvents decodes deliveries onto rChan until ctx is cancelled.
// A delivery held when the receiver has already gone away is requeued
// instead of left un-acked on a parked goroutine.
func pumpCheckoutEvents(ctx context.Context, msgChan <-chan amqp.Delivery, rChan chan<- *CheckoutCompletedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-msgChan:
			var evt CheckoutCompletedEvent
			if err := json.Unmarshal(d.Body, &evt); err != nil {
				d.Nack(false, false)
				continue
			}
			select {
			case <-ctx.Done():
				d.Nack(false, true)
				return
			case rChan <- &evt:
				d.Ack(false)
			}
		}
	}
}
