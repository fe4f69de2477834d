// Package events publishes tripbooker domain events.
//
// AMQPPublisher sends JSON events to a durable RabbitMQ topic exchange,
// routed by event type. NopPublisher is used when no broker is configured.
package events
