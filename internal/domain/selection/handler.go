package selection

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/filab/fi-dashboard/internal/domain/chart"
	"github.com/filab/fi-dashboard/internal/domain/patient"
)

// RecordSource lists the loaded collection in input order.
type RecordSource interface {
	AllPatients(ctx context.Context) ([]*patient.Record, error)
}

// Dashboard is everything the shell needs to paint one screen.
type Dashboard struct {
	Patients []Entry     `json:"patients"`
	Selected string      `json:"selected"`
	Chart    *chart.Spec `json:"chart"`
}

type Handler struct {
	records RecordSource
	opts    chart.Options
}

func NewHandler(records RecordSource, opts chart.Options) *Handler {
	return &Handler{records: records, opts: opts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard)
}

// GetDashboard applies ?selected= to the initial state and returns the
// picker entries with the chart for whichever patient ends up selected.
func (h *Handler) GetDashboard(c echo.Context) error {
	records, err := h.records.AllPatients(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	state := Initial(records)
	if hcn := c.QueryParam("selected"); hcn != "" {
		state, err = Select(state, hcn, records)
		if errors.Is(err, ErrUnknownPatient) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
	}

	out := Dashboard{
		Patients: Entries(records, state),
		Selected: state.Selected,
	}
	for _, r := range records {
		if r.HCN == state.Selected {
			out.Chart = chart.Derive(r, h.opts)
			break
		}
	}
	return c.JSON(http.StatusOK, out)
}
