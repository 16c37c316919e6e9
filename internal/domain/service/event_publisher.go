package service

import (
	"context"
)

// Channel is the medium a message is delivered through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// MessageKind names the template the delivery worker renders.
type MessageKind string

const (
	MessageOTPCode   MessageKind = "otp_code"
	MessageMagicLink MessageKind = "magic_link"
	MessageSignUp    MessageKind = "sign_up_link"
)

// OutboundMessage is a request to deliver a code or a link to a user.
type OutboundMessage struct {
	RequestID string      `json:"request_id,omitempty"` // For distributed tracing
	Kind      MessageKind `json:"kind"`
	Channel   Channel     `json:"channel"`
	Recipient string      `json:"recipient"` // Email address or E.164 phone number
	Code      string      `json:"code,omitempty"`
	Link      string      `json:"link,omitempty"`
}

// MessageDispatcher defines the interface for handing messages to the delivery queue
type MessageDispatcher interface {
	// Dispatch publishes the message for asynchronous delivery
	Dispatch(ctx context.Context, msg *OutboundMessage) error

	// Close releases any resources held by the dispatcher
	Close() error
}
