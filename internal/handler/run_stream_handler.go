package handler

import (
	"time"

	"sentinel-be/internal/dto"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/service"
	internalWS "sentinel-be/internal/websocket"
	"sentinel-be/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type RunStreamHandler struct {
	runService service.IRunService
	hub        *internalWS.Hub
	logger     logger.ILogger
}

func NewRunStreamHandler(runService service.IRunService, hub *internalWS.Hub, log logger.ILogger) *RunStreamHandler {
	return &RunStreamHandler{
		runService: runService,
		hub:        hub,
		logger:     log,
	}
}

func (h *RunStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/run/:run_id/ws", h.ServeWs)
}

// ServeWs streams the events of one run. The current status is sent as the
// first frame so a late watcher is not left waiting for the next case.
func (h *RunStreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	runId := c.Params("run_id")
	status, err := h.runService.GetRunStatus(c.UserContext(), runId)
	if err != nil {
		return err
	}
	initial := service.EncodeRunEvent(snapshotEvent(status))

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RunStreamHandler", "Starting WebSocket session", map[string]interface{}{"run_id": runId})
		internalWS.ServeWs(h.hub, conn, runId, initial)
		h.logger.Info("RunStreamHandler", "WebSocket session ended", map[string]interface{}{"run_id": runId})
	})(c)
}

func snapshotEvent(s *dto.RunStatusResponse) events.RunProgressEvent {
	eventType := events.RunProgress
	switch s.Status {
	case "completed":
		eventType = events.RunCompleted
	case "failed":
		eventType = events.RunFailed
	}
	e := events.RunProgressEvent{
		Type:       eventType,
		RunId:      s.RunId,
		Status:     s.Status,
		Processed:  s.Processed,
		Total:      s.Total,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		OccurredAt: time.Now().UTC(),
	}
	if s.Error != nil {
		e.Error = *s.Error
	}
	return e
}
