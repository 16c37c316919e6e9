// Package sender delivers outbound codes and links.
package sender

import (
	"context"
	"log/slog"

	"gatekeeper/config"
	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/util"

	"github.com/pkg/errors"
)

// logSender writes messages to the log instead of a mail or SMS gateway. Codes and links
// are only printed when debug logging is enabled.
type logSender struct {
	logger *slog.Logger
	reveal bool
}

// NewLogSender creates the development sender.
func NewLogSender(cfg *config.Config, logger *slog.Logger) service.MessageSender {
	return &logSender{
		logger: logger,
		reveal: cfg.Env.Debug,
	}
}

// Send validates the message and logs it.
func (s *logSender) Send(ctx context.Context, msg *service.OutboundMessage) error {
	if err := Validate(msg); err != nil {
		return err
	}

	attrs := []slog.Attr{
		slog.String("kind", string(msg.Kind)),
		slog.String("channel", string(msg.Channel)),
		slog.String("recipient", util.MaskRecipient(msg.Recipient)),
	}
	if s.reveal {
		attrs = append(attrs, slog.String("code", msg.Code), slog.String("link", msg.Link))
	}

	logger := deliverycontext.GetLoggerOrDefault(ctx, s.logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "[Sender] Message delivered", attrs...)

	return nil
}

// Validate rejects messages no sender can deliver. The error wraps
// service.ErrUndeliverable.
func Validate(msg *service.OutboundMessage) error {
	switch msg.Kind {
	case service.MessageOTPCode:
		if msg.Code == "" {
			return errors.Wrap(service.ErrUndeliverable, "otp message without code")
		}
	case service.MessageMagicLink, service.MessageSignUp:
		if msg.Link == "" {
			return errors.Wrapf(service.ErrUndeliverable, "%s message without link", msg.Kind)
		}
	default:
		return errors.Wrapf(service.ErrUndeliverable, "unknown message kind %q", msg.Kind)
	}

	switch msg.Channel {
	case service.ChannelEmail:
		if _, err := util.NormalizeEmail(msg.Recipient); err != nil {
			return errors.Wrap(service.ErrUndeliverable, err.Error())
		}
	case service.ChannelSMS:
		// Recipients are already E.164, so no default region applies.
		if _, err := util.NormalizePhoneNumber(msg.Recipient, ""); err != nil {
			return errors.Wrap(service.ErrUndeliverable, err.Error())
		}
	default:
		return errors.Wrapf(service.ErrUndeliverable, "unknown channel %q", msg.Channel)
	}

	return nil
}
