package handler

import (
	log "github.com/sirupsen/logrus"

	"github.com/tv-reposteria/api/internal/ws"
)

// Broadcaster pushes events to websocket subscribers. Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(channel string, event ws.Event)
}

// notify is called only after the service has committed. A nil
// Broadcaster disables push.
func notify(b Broadcaster, channel, eventType string, payload interface{}) {
	if b == nil {
		return
	}
	event, err := ws.NewEvent(eventType, payload)
	if err != nil {
		log.WithError(err).WithField("type", eventType).Error("build ws event")
		return
	}
	b.Broadcast(channel, event)
}
