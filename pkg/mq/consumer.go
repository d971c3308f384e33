package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"FoodTok.com/pkg/constants"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/rabbitmq/amqp091-go"
)

type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	// 暂时性失败时重新发布事件
	redeliver ChangeEventPublisher
}

func NewConsumer(rabbitmqURL string, redeliver ChangeEventPublisher) (*Consumer, error) {
	conn, err := amqp091.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// 设置QoS，限制未确认消息数量
	err = ch.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to setup topology: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, redeliver: redeliver}, nil
}

type deliveryAction int

const (
	actionAck deliveryAction = iota
	actionDiscard
	actionRequeue
)

// process 解析并处理一条消息, 返回对这条消息的确认方式.
// 处理失败时以 attempt+1 重新发布, 超过上限后丢弃, 此时计数器已经写入修复队列
func process(ctx context.Context, body []byte, handler ChangeEventHandler, redeliver ChangeEventPublisher) deliveryAction {
	var event ChangeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		hlog.Errorf("Failed to unmarshal change event: %v", err)
		return actionDiscard
	}

	err := handler.HandleChangeEvent(ctx, &event)
	if err == nil {
		return actionAck
	}
	if event.Attempt+1 >= constants.MaxRedeliveries {
		hlog.CtxErrorf(ctx, "Dropping change event %s %s after %d attempts: %v", event.EventID, event.Path, event.Attempt+1, err)
		return actionAck
	}
	hlog.CtxWarnf(ctx, "Change event %s %s failed (attempt %d), redelivering: %v", event.EventID, event.Path, event.Attempt, err)
	event.Attempt++
	if perr := redeliver.PublishChangeEvent(ctx, &event); perr != nil {
		hlog.CtxErrorf(ctx, "Failed to redeliver change event %s: %v", event.EventID, perr)
		return actionRequeue
	}
	return actionAck
}

func (c *Consumer) ConsumeChangeEvents(ctx context.Context, handler ChangeEventHandler) error {
	msgs, err := c.channel.Consume(
		ChangeEventQueue,
		"",    // consumer
		false, // auto-ack (设置为false，手动确认)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				hlog.Info("Change event consumer context cancelled")
				return
			case d, ok := <-msgs:
				if !ok {
					hlog.Info("Change event consumer channel closed")
					return
				}
				switch process(ctx, d.Body, handler, c.redeliver) {
				case actionAck:
					d.Ack(false) // 确认消息
				case actionDiscard:
					d.Nack(false, false) // 拒绝消息，不重新入队
				case actionRequeue:
					d.Nack(false, true) // 拒绝消息，重新入队
				}
			}
		}
	}()

	return nil
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
