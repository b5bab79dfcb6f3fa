package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/analytics/export"
	"github.com/contentforge/admin-console/internal/analytics/ui"
	"github.com/contentforge/admin-console/internal/view"
	"github.com/contentforge/admin-console/report"
)

const basePath = "/analytics"

const requestTimeout = 10 * time.Second

// ReportService loads the analytics report.
type ReportService interface {
	Report(ctx context.Context, filter analytics.Filter) (analytics.Report, error)
	Invalidate(ctx context.Context) error
}

// PDFService prints a report.
type PDFService interface {
	RenderReport(ctx context.Context, rep analytics.Report) ([]byte, error)
}

// Handler serves the analytics page and its exports.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	pages   *view.Pages
	pdf     PDFService
	csvPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the analytics HTTP handler. pdf may be nil, in
// which case PDF export reports that it is not configured.
func NewHandler(logger *slog.Logger, service ReportService, pages *view.Pages, pdf PDFService) *Handler {
	h := &Handler{
		logger:  logger,
		service: service,
		pages:   pages,
		pdf:     pdf,
		now:     time.Now,
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) load(r *http.Request) (analytics.Report, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	rep, err := h.service.Report(ctx, analytics.ParseFilter(r.URL.Query()))
	return rep, cancel, err
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	rep, cancel, err := h.load(r)
	defer cancel()
	if err != nil {
		h.pages.Fail(w, r, "Analytics", err)
		return
	}
	for _, series := range rep.Series {
		if series.Err != nil {
			h.logger.Warn("analytics series unavailable", slog.String("metric", string(series.Metric)), slog.Any("error", series.Err))
		}
	}
	h.pages.Shell(w, r, view.Page{
		Name:  "pages/analytics.html",
		Title: "Analytics",
		Data:  ui.Build(rep, export.Chart),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	back := backURL(r)
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.pages.FailRedirect(w, r, "Refresh failed", err, back)
		return
	}
	h.pages.SuccessRedirect(w, r, "Analytics refreshed", "Charts were reloaded from the backend.", back)
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	back := backURL(r)
	if h.pdf == nil {
		h.pages.FailRedirect(w, r, "PDF export unavailable", errors.New("pdf export not configured"), back)
		return
	}
	rep, cancel, err := h.load(r)
	defer cancel()
	if err != nil {
		h.pages.FailRedirect(w, r, "PDF export failed", err, back)
		return
	}
	pdf, err := h.pdf.RenderReport(r.Context(), rep)
	if err != nil {
		h.logger.Error("render analytics pdf", slog.Any("error", err))
		title := "PDF export failed"
		if errors.Is(err, report.ErrNotConfigured) {
			title = "PDF export unavailable"
		}
		h.pages.FailRedirect(w, r, title, err, back)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.filename(rep, "pdf")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	rep, cancel, err := h.load(r)
	defer cancel()
	if err != nil {
		h.pages.FailRedirect(w, r, "CSV export failed", err, backURL(r))
		return
	}
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := export.WriteReportCSV(buf, rep); err != nil {
		h.logger.Error("write analytics csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.filename(rep, "csv")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) filename(rep analytics.Report, ext string) string {
	return fmt.Sprintf("analytics-%s-%s.%s", rep.Filter.Key(), h.now().UTC().Format("20060102"), ext)
}

func backURL(r *http.Request) string {
	if q := r.URL.RawQuery; q != "" {
		return basePath + "?" + q
	}
	return basePath
}
