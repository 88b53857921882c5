package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/companynet/internal/queue"
	"github.com/OFFIS-RIT/companynet/internal/server/middleware"
	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/common"
	"github.com/OFFIS-RIT/companynet/pkg/logger"

	"github.com/labstack/echo/v4"
)

type createNetworkData struct {
	Query string `json:"query" validate:"required,max=256"`
	Limit int    `json:"limit" validate:"gte=0,lte=1000"`
}

type networkResponse struct {
	Message  string           `json:"message,omitempty"`
	Network  *common.Network  `json:"network,omitempty"`
	Analysis *common.Analysis `json:"analysis,omitempty"`
}

// CreateNetworkHandler builds and analyzes a network within the request.
// The network is stored when network storage is configured.
func CreateNetworkHandler(c echo.Context) error {
	data := new(createNetworkData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	limit := data.Limit
	if limit == 0 {
		limit = app.Graph.SeedLimit()
	}
	network := app.Graph.BuildNetwork(ctx, data.Query, limit)
	analysis := app.Graph.AnalyzeNetwork(network)

	if app.Store != nil {
		if err := app.Store.SaveNetwork(ctx, network); err != nil {
			logger.Error("[Server] Failed to save network", "id", network.ID, "err", err)
			return c.JSON(http.StatusInternalServerError, networkResponse{
				Message: "Internal server error",
			})
		}
	}

	return c.JSON(http.StatusOK, networkResponse{
		Network:  network,
		Analysis: &analysis,
	})
}

type queuedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// CreateNetworkAsyncHandler enqueues a build request and returns the id the
// network will be stored under.
func CreateNetworkAsyncHandler(c echo.Context) error {
	data := new(createNetworkData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queuedResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queuedResponse{
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	id := util.NewNetworkID()

	body, err := queue.EncodeNetworkRequest(queue.NetworkRequestMsg{
		RequestID: id,
		Query:     data.Query,
		Limit:     data.Limit,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, queuedResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(c.Request().Context(), app.Queue, queue.NetworkQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue network request", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, queuedResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, queuedResponse{
		Message: "Network build queued",
		ID:      id,
	})
}
