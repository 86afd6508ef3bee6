package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"dispatch/internal/core/domain/model/kernel"
)

// StreamOrderEvents handles GET /api/v1/orders/:id/events. It serves the
// order's event feed as server-sent events until the client disconnects.
// Messages a slow client misses are dropped by the hub, not replayed.
func (s *Server) StreamOrderEvents(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	sub := s.hub.Subscribe(kernel.OrderTopic(orderID))
	defer sub.Close()

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(msg.Payload)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", msg.Name, payload); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}
