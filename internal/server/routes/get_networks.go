package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/companynet/internal/server/middleware"
	"github.com/OFFIS-RIT/companynet/internal/storage"
	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/graph"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/store"

	"github.com/labstack/echo/v4"
)

type networkIDParam struct {
	ID string `param:"id" validate:"required,len=21"`
}

func bindNetworkID(c echo.Context) (string, bool) {
	data := new(networkIDParam)
	if err := c.Bind(data); err != nil {
		return "", false
	}
	if err := c.Validate(data); err != nil {
		return "", false
	}
	return data.ID, util.IsNetworkID(data.ID)
}

// GetNetworkHandler returns a stored network together with its rankings.
func GetNetworkHandler(c echo.Context) error {
	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	network, err := app.Store.GetNetwork(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, networkResponse{
			Message: "Network not found",
		})
	}
	if err != nil {
		logger.Error("[Server] Failed to load network", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, networkResponse{
			Message: "Internal server error",
		})
	}

	analysis := graph.Analyze(network)
	return c.JSON(http.StatusOK, networkResponse{
		Network:  network,
		Analysis: &analysis,
	})
}

type downloadResponse struct {
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

// GetNetworkDownloadHandler returns a presigned link to the exported document.
func GetNetworkDownloadHandler(c echo.Context) error {
	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, downloadResponse{
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	link, err := storage.GenerateDownloadLink(c.Request().Context(), app.S3, app.Bucket, storage.NetworkKey(id))
	if err != nil {
		logger.Error("[Server] Failed to presign network download", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, downloadResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, downloadResponse{URL: link})
}
