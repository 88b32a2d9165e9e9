package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

// Channel 是 *amqp.Channel 中发布消息所需的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	cfg     *config.Config
	channel Channel
}

func NewPublisher(cfg *config.Config, channel Channel) *Publisher {
	return &Publisher{
		cfg:     cfg,
		channel: channel,
	}
}

// Publish 将邮件序列化后投递到邮件队列
func (p *Publisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal mail message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := p.channel.PublishWithContext(
		ctx,
		"",
		p.cfg.RabbitMQ.MailQueue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("notify: publish %s mail: %w", msg.Type, err)
	}

	return nil
}

func (p *Publisher) PublishShiftChange(ctx context.Context, n *domain.Notification) error {
	return p.Publish(ctx, domain.MailMessage{
		Type: domain.MailTypeShiftChange,
		To:   n.RecipientEmail,
		Data: domain.ShiftChangeMailData{
			FullName:       n.RecipientName,
			FromDepartment: n.FromDepartment,
			ToDepartment:   n.ToDepartment,
			Reason:         n.Reason,
			Message:        n.Message,
		},
	})
}

func (p *Publisher) PublishRedAlert(ctx context.Context, to string, data domain.RedAlertMailData) error {
	return p.Publish(ctx, domain.MailMessage{
		Type: domain.MailTypeRedAlert,
		To:   to,
		Data: data,
	})
}
