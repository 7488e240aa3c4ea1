package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/filab/fi-dashboard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:hcn", h.GetPatient)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSummaries(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL.Path))
}

func (h *Handler) GetPatient(c echo.Context) error {
	rec, err := h.svc.GetPatient(c.Request().Context(), c.Param("hcn"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// HTTPError maps lookup failures onto status codes for every handler that
// resolves a patient by HCN.
func HTTPError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
