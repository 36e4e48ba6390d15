package services

import (
	"context"
	"encoding/json"

	"AmberWatch/internal/models"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/realtime"

	"go.uber.org/zap"
)

const TopicAlertCreated = "alerts.created"

// AlertFeed 警报创建事件流；只推送订阅之后创建的警报
type AlertFeed struct {
	broker realtime.Broker
}

func NewAlertFeed(broker realtime.Broker) *AlertFeed {
	return &AlertFeed{broker: broker}
}

func (f *AlertFeed) PublishCreated(ctx context.Context, alert *models.Alert) error {
	if f == nil || f.broker == nil {
		return nil
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return f.broker.Publish(ctx, TopicAlertCreated, payload)
}

// SubscribeCreated 调用方持有返回的订阅并负责退订
func (f *AlertFeed) SubscribeCreated(fn func(ctx context.Context, alert models.Alert)) (realtime.Subscription, error) {
	return f.broker.Subscribe(TopicAlertCreated, func(ctx context.Context, payload []byte) {
		var alert models.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			logger.Warn("drop malformed alert event", zap.Error(err))
			return
		}
		fn(ctx, alert)
	})
}
