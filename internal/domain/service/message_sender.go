package service

import (
	"context"

	"github.com/pkg/errors"
)

// ErrUndeliverable marks a message that will never be delivered, such as one with an
// unknown kind or an invalid recipient. The worker acknowledges it instead of retrying.
var ErrUndeliverable = errors.New("message is undeliverable")

// MessageSender delivers a code or a link through its channel.
type MessageSender interface {
	Send(ctx context.Context, msg *OutboundMessage) error
}
