// Package web serves the browser shell that draws the dashboard: the
// password form, the patient picker and the Plotly chart. All state lives in
// page memory; the shell only talks to /api/v1.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PlotlyScript is the charting bundle the shell loads.
const PlotlyScript = "https://cdn.plot.ly/plotly-2.35.2.min.js"

//go:embed index.html static
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "index.html"))

type Page struct {
	Title        string
	PlotlyScript string
	Env          string
}

type Handler struct {
	index  []byte
	static http.Handler
}

func NewHandler(page Page) (*Handler, error) {
	if page.Title == "" {
		page.Title = "FI-Lab Dashboard"
	}
	if page.PlotlyScript == "" {
		page.PlotlyScript = PlotlyScript
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	return &Handler{
		index:  buf.Bytes(),
		static: http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
	}, nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/static/*", echo.WrapHandler(h.static))
}

func (h *Handler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, h.index)
}
