package middleware

import (
	"github.com/OFFIS-RIT/companynet/internal/queue"
	"github.com/OFFIS-RIT/companynet/pkg/graph"
	"github.com/OFFIS-RIT/companynet/pkg/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
)

// App holds the dependencies shared by all handlers. Store, Queue and S3 are
// nil when the matching backend is not configured.
type App struct {
	Graph        *graph.GraphClient
	Store        store.NetworkStorage
	Queue        queue.Channel
	S3           *s3.Client
	Bucket       string
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
