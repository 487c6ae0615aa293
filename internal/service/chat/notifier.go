package chat

import "context"

// Notifier 把业务事件推送到用户的全部在线连接
type Notifier struct {
	broker MessageBroker
}

// NewNotifier 构造函数
func NewNotifier(broker MessageBroker) *Notifier {
	return &Notifier{broker: broker}
}

// NotifyUser 编码事件并发布给目标用户
func (n *Notifier) NotifyUser(ctx context.Context, userId, event string, data any) error {
	payload, err := encodeEvent(event, data)
	if err != nil {
		return err
	}
	return n.broker.Publish(ctx, Delivery{TargetUserId: userId, Frame: payload})
}
