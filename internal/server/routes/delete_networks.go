package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/companynet/internal/queue"
	"github.com/OFFIS-RIT/companynet/internal/server/middleware"
	"github.com/OFFIS-RIT/companynet/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeleteNetworkHandler enqueues removal of a network from every backend.
func DeleteNetworkHandler(c echo.Context) error {
	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, queuedResponse{
			Message: "Invalid request params",
		})
	}

	body, err := json.Marshal(queue.DeleteNetworkMsg{NetworkID: id})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, queuedResponse{
			Message: "Internal server error",
		})
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(c.Request().Context(), app.Queue, queue.DeleteQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue network deletion", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, queuedResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, queuedResponse{
		Message: "Network deletion queued",
		ID:      id,
	})
}
