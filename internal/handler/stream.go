package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/service"
)

const defaultHeartbeat = 25 * time.Second

// StreamHandler pushes realtime events to clients over Server-Sent Events.
type StreamHandler struct {
	hub       *realtime.Hub
	trips     *service.TripService
	heartbeat time.Duration
	logger    logrus.FieldLogger
}

// NewStreamHandler creates a new StreamHandler. A heartbeat of zero uses
// the default.
func NewStreamHandler(hub *realtime.Hub, trips *service.TripService, heartbeat time.Duration, logger logrus.FieldLogger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{hub: hub, trips: trips, heartbeat: heartbeat, logger: logger}
}

// Stream handles GET /v1/stream
//
// The caller always receives its own user channel. ?trip=<id> adds the trip
// room when the caller can view the trip; ?company=<id> adds the company room
// for staff of that company and admins.
func (h *StreamHandler) Stream(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	targets, err := h.targets(c, a)
	if err != nil {
		respondError(c, err)
		return
	}

	sub := h.hub.Subscribe(targets...)
	defer sub.Close()

	log := h.logger.WithField("actor_id", a.ID).WithField("targets", len(targets))
	log.Debug("stream opened")
	defer log.Debug("stream closed")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent(msg.Event, msg)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

func (h *StreamHandler) targets(c *gin.Context, a domain.Actor) ([]realtime.Target, error) {
	targets := []realtime.Target{realtime.UserTarget(a.ID)}

	if tripID := c.Query("trip"); tripID != "" {
		if _, err := h.trips.GetTrip(c.Request.Context(), a, tripID); err != nil {
			return nil, err
		}
		targets = append(targets, realtime.TripTarget(tripID))
	}

	if companyID := c.Query("company"); companyID != "" {
		if !a.IsStaff() || (!a.IsAdmin() && domain.CompanyScopeOf(a) != companyID) {
			return nil, service.ErrForbidden
		}
		targets = append(targets, realtime.CompanyTarget(companyID))
	}
	return targets, nil
}
