package mq

import "context"

// ChangeEventPublisher 变更事件生产者接口
type ChangeEventPublisher interface {
	PublishChangeEvent(ctx context.Context, event *ChangeEvent) error
}

// ChangeEventHandler 返回错误表示暂时性失败, 事件需要重新投递
type ChangeEventHandler interface {
	HandleChangeEvent(ctx context.Context, event *ChangeEvent) error
}

// 确保Producer实现ChangeEventPublisher接口
var _ ChangeEventPublisher = (*Producer)(nil)
