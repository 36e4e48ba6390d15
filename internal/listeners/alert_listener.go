package listeners

import (
	"context"

	"AmberWatch/internal/models"
	"AmberWatch/internal/services"
	"AmberWatch/pkg/i18n"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/sse"
	"AmberWatch/pkg/websocket"

	"go.uber.org/zap"
)

const (
	EventAlertCreated = "alert_created"
	noticeKey         = "alert_created_notice"
)

// AlertEvent SSE 推送的负载；Notices 包含全部已加载语言的提示
type AlertEvent struct {
	Type    string            `json:"type"`
	Data    models.Alert      `json:"data"`
	Notice  string            `json:"notice"`
	Notices map[string]string `json:"notices,omitempty"`
}

// AlertListeners 把警报创建事件转发到推送通道
type AlertListeners struct {
	SSE         *sse.Hub
	WS          *websocket.Hub
	I18n        *i18n.I18nSupport
	DefaultLang string
}

// Init 订阅警报创建事件，返回退订函数，关停时调用
func (l *AlertListeners) Init(feed *services.AlertFeed) (func(), error) {
	sub, err := feed.SubscribeCreated(l.onAlertCreated)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func (l *AlertListeners) notice(lang string, alert models.Alert) string {
	if l.I18n == nil {
		return ""
	}
	return l.I18n.T(lang, noticeKey, map[string]interface{}{
		"ChildName": alert.ChildName,
		"Age":       alert.Age,
	})
}

func (l *AlertListeners) onAlertCreated(ctx context.Context, alert models.Alert) {
	lang := l.DefaultLang
	if lang == "" {
		lang = "en"
	}

	if l.SSE != nil {
		ev := AlertEvent{Type: EventAlertCreated, Data: alert, Notice: l.notice(lang, alert)}
		if l.I18n != nil {
			ev.Notices = make(map[string]string)
			for _, tag := range l.I18n.Languages() {
				ev.Notices[tag] = l.notice(tag, alert)
			}
		}
		if _, err := l.SSE.Publish(EventAlertCreated, ev); err != nil {
			logger.Warn("push alert over sse failed", zap.String("alert", alert.ID), zap.Error(err))
		}
	}

	if l.WS != nil {
		l.WS.Broadcast(&websocket.Message{Type: websocket.MessageTypeAlertCreated, Data: alert}, func(lang string) string {
			return l.notice(lang, alert)
		})
	}
	logger.Info("alert pushed", zap.String("alert", alert.ID), zap.Int("sse_clients", l.sseCount()))
}

func (l *AlertListeners) sseCount() int {
	if l.SSE == nil {
		return 0
	}
	return l.SSE.Count()
}
