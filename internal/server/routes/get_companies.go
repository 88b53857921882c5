package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/companynet/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

type companyResponse struct {
	Message string          `json:"message,omitempty"`
	Company json.RawMessage `json:"company,omitempty"`
}

// GetCompanyHandler looks up one company record by CNPJ.
func GetCompanyHandler(c echo.Context) error {
	type getCompanyData struct {
		CNPJ string `param:"cnpj" validate:"required,max=32"`
	}

	data := new(getCompanyData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, companyResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, companyResponse{
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	record, ok := app.Graph.CompanyByCNPJ(c.Request().Context(), data.CNPJ)
	if !ok {
		return c.JSON(http.StatusNotFound, companyResponse{
			Message: "Company not found",
		})
	}

	return c.JSON(http.StatusOK, companyResponse{
		Company: json.RawMessage(record.Raw()),
	})
}

type partnerCompaniesResponse struct {
	Message   string            `json:"message,omitempty"`
	Companies []json.RawMessage `json:"companies"`
}

// GetPartnerCompaniesHandler lists companies whose ownership entries mention a CPF.
func GetPartnerCompaniesHandler(c echo.Context) error {
	type getPartnerData struct {
		CPF   string `param:"cpf" validate:"required,max=32"`
		Limit int    `query:"limit" validate:"gte=0,lte=1000"`
	}

	data := new(getPartnerData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, partnerCompaniesResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, partnerCompaniesResponse{
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	records := app.Graph.CompaniesByCPF(c.Request().Context(), data.CPF, data.Limit)

	companies := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		companies = append(companies, json.RawMessage(record.Raw()))
	}

	return c.JSON(http.StatusOK, partnerCompaniesResponse{Companies: companies})
}
