package listeners

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/internal/services"
	"AmberWatch/pkg/i18n"
	"AmberWatch/pkg/realtime"
	"AmberWatch/pkg/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertCreatedReachesSSEWithLocalizedNotice(t *testing.T) {
	tr, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)
	broker := realtime.NewLocalBroker()
	feed := services.NewAlertFeed(broker)
	hub := sse.NewHub(time.Hour)
	client := hub.AddClient("viewer")

	l := &AlertListeners{SSE: hub, I18n: tr, DefaultLang: "en"}
	off, err := l.Init(feed)
	require.NoError(t, err)

	alert := &models.Alert{ID: "a1", ChildName: "Asha", Age: 7, Status: models.AlertActive}
	require.NoError(t, feed.PublishCreated(context.Background(), alert))

	select {
	case raw := <-client.Events():
		assert.Contains(t, string(raw), "event: alert_created")
		var ev AlertEvent
		require.NoError(t, json.Unmarshal(dataLine(raw), &ev))
		assert.Equal(t, "New alert: Asha, age 7", ev.Notice)
		assert.Equal(t, "a1", ev.Data.ID)
		assert.Contains(t, ev.Notices["hi"], "Asha")
	case <-time.After(time.Second):
		t.Fatal("no sse event")
	}

	off()
	require.NoError(t, feed.PublishCreated(context.Background(), alert))
	assert.Equal(t, 0, broker.Subscribers(services.TopicAlertCreated))
}

func dataLine(raw []byte) []byte {
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: "))
		}
	}
	return nil
}
