package server

import (
	"github.com/OFFIS-RIT/companynet/internal/server/middleware"
	"github.com/OFFIS-RIT/companynet/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Network routes
	apiRoutes.POST("/networks", routes.CreateNetworkHandler)
	apiRoutes.POST("/networks/async", routes.CreateNetworkAsyncHandler, middleware.RequireQueue)
	apiRoutes.GET("/networks/:id", routes.GetNetworkHandler, middleware.RequireStore)
	apiRoutes.GET("/networks/:id/download", routes.GetNetworkDownloadHandler, middleware.RequireS3)
	apiRoutes.DELETE("/networks/:id", routes.DeleteNetworkHandler, middleware.RequireQueue)

	// Lookup routes
	apiRoutes.GET("/companies/:cnpj", routes.GetCompanyHandler)
	apiRoutes.GET("/partners/:cpf/companies", routes.GetPartnerCompaniesHandler)
}
