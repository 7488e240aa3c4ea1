package chart

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/filab/fi-dashboard/internal/domain/patient"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:hcn/chart", h.GetChart)
	api.GET("/patients/:hcn/chart.png", h.GetChartPNG)
	api.GET("/patients/:hcn/export.xlsx", h.ExportWorkbook)
	api.POST("/chart/hover", h.Hover)
}

func (h *Handler) GetChart(c echo.Context) error {
	spec, err := h.svc.Spec(c.Request().Context(), c.Param("hcn"))
	if err != nil {
		return patient.HTTPError(err)
	}
	return c.JSON(http.StatusOK, spec)
}

func (h *Handler) GetChartPNG(c echo.Context) error {
	rec, err := h.svc.Record(c.Request().Context(), c.Param("hcn"))
	if err != nil {
		return patient.HTTPError(err)
	}
	var buf bytes.Buffer
	if err := RenderPNG(&buf, rec, h.svc.Options()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) ExportWorkbook(c echo.Context) error {
	rec, err := h.svc.Record(c.Request().Context(), c.Param("hcn"))
	if err != nil {
		return patient.HTTPError(err)
	}
	data, err := ExportXLSX(rec, h.svc.Options())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="fi-lab-%s.xlsx"`, rec.HCN))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// HoverRequest carries the client's current band and the pointer event.
type HoverRequest struct {
	State HoverState `json:"state"`
	Event HoverEvent `json:"event"`
}

// HoverResponse is the next state plus the shape to draw, if any.
type HoverResponse struct {
	State HoverState `json:"state"`
	Shape *Shape     `json:"shape"`
}

func (h *Handler) Hover(c echo.Context) error {
	var req HoverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	switch req.Event.Kind {
	case Hover, Unhover:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "event.kind must be hover or unhover")
	}
	next := h.svc.Hover(req.State, req.Event)
	resp := HoverResponse{State: next}
	if next.Window != nil {
		s := LookbackShape(*next.Window)
		resp.Shape = &s
	}
	return c.JSON(http.StatusOK, resp)
}
