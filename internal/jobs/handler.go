package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/contentforge/admin-console/internal/listing"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/view"
)

const listPath = "/jobs"

var filterSpec = listing.FilterSpec{
	Statuses:    Statuses,
	Types:       Types,
	SortKeys:    SortKeys,
	DefaultSort: "createdAt",
}

var bulkActions = []listing.Action{
	{Name: ActionRetry, Label: "Retry"},
	{Name: ActionCancel, Label: "Cancel"},
	{Name: ActionDelete, Label: "Delete", Destructive: true},
}

// Handler serves the job monitoring pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pages     *view.Pages
	audit     *shared.AuditLogger
	sequencer *listing.Sequencer[listing.State]
}

// NewHandler builds a jobs handler.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Pages, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		pages:     pages,
		audit:     audit,
		sequencer: listing.NewSequencer[listing.State](),
	}
}

// Sequencer exposes the list state registry.
func (h *Handler) Sequencer() *listing.Sequencer[listing.State] {
	return h.sequencer
}

// MountRoutes registers job routes. The caller applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/bulk", h.bulk)
	r.Get("/{id}", h.show)
	r.Post("/{id}/retry", h.retry)
	r.Post("/{id}/cancel", h.cancel)
	r.Get("/{id}/delete", h.confirmDelete)
	r.Post("/{id}/delete", h.delete)
}

type listPageData struct {
	listing.Page[Job]
	Stats    *Stats
	Statuses []string
	Types    []string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := listing.ParseFilters(r, filterSpec)
	selected := listing.NewSelection(r.URL.Query()[listing.SelectionField]...)

	ticket := h.sequencer.Begin(listing.Key(shared.SessionID(r.Context()), listPath))
	overview, err := h.service.Overview(r.Context(), filters.Backend())
	if err != nil {
		h.pages.Fail(w, r, "Jobs", err)
		return
	}
	if overview.StatsErr != nil {
		h.logger.Warn("job stats unavailable", slog.Any("error", overview.StatsErr))
	}
	page := listing.NewPage(overview.Page.Data, overview.Page.Pagination, filters, filterSpec, selected, Job.Key)
	page.Actions = bulkActions
	if newer, stale := listing.Settle(h.sequencer, ticket, listing.StateOf(page)); stale {
		h.logger.Debug("stale jobs page discarded", slog.Uint64("seq", ticket.Seq))
		http.Redirect(w, r, newer, http.StatusSeeOther)
		return
	}
	h.pages.Shell(w, r, view.Page{
		Name:  "pages/jobs_list.html",
		Title: "Jobs",
		Data:  listPageData{Page: page, Stats: overview.Stats, Statuses: Statuses, Types: Types},
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request) {
	req := listing.ParseBulk(r, listPath)
	var action listing.Action
	for _, candidate := range bulkActions {
		if candidate.Name == req.Action {
			action = candidate
		}
	}
	if action.Name == "" {
		h.pages.FailRedirect(w, r, "Bulk action failed", &shared.ValidationError{Field: "action", Message: "Unknown action"}, req.BackWithSelection())
		return
	}
	confirmer := listing.NewFormConfirmer(r)
	outcome, err := listing.RunBulk(r.Context(), confirmer, req, action, "job", func(ctx context.Context, ids []string) error {
		err := h.service.Bulk(ctx, ids, action.Name)
		listing.Audit(ctx, h.audit, h.logger, "jobs.bulk."+action.Name, "job", ids, err)
		return err
	})
	switch {
	case err != nil:
		h.pages.FailRedirect(w, r, "Bulk "+action.Name+" failed", err, req.BackWithSelection())
	case outcome == listing.AwaitingConfirmation:
		h.pages.Shell(w, r, view.Page{
			Name:  "pages/confirm.html",
			Title: action.Label + " jobs",
			Data:  listing.NewConfirmPage(req, *confirmer.Pending(), listPath+"/bulk"),
		})
	case outcome == listing.Cancelled:
		http.Redirect(w, r, req.BackWithSelection(), http.StatusSeeOther)
	default:
		h.pages.SuccessRedirect(w, r, "Bulk "+action.Name+" completed", strconv.Itoa(req.Selection.Len())+" jobs updated", req.Back)
	}
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "Job", err)
		return
	}
	h.pages.Shell(w, r, view.Page{Name: "pages/jobs_detail.html", Title: "Job " + job.ShortID(), Data: struct{ Job Job }{job}})
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.service.Retry(r.Context(), id)
	h.finish(w, r, "jobs.retry", id, err, "Job retry initiated", "The job was queued again")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	confirmer := listing.NewFormConfirmer(r)
	prompt := listing.Prompt{Title: "Cancel job", Message: "Are you sure you want to cancel this job?"}
	outcome, err := listing.RunOne(r.Context(), confirmer, prompt, func(ctx context.Context) error {
		return h.service.Cancel(ctx, id)
	})
	switch outcome {
	case listing.AwaitingConfirmation:
		h.pages.Shell(w, r, view.Page{
			Name:  "pages/confirm.html",
			Title: prompt.Title,
			Data:  listing.ConfirmPage{Prompt: *confirmer.Pending(), Back: backURL(r), ActionURL: listPath + "/" + id + "/cancel"},
		})
	case listing.Cancelled:
		http.Redirect(w, r, backURL(r), http.StatusSeeOther)
	default:
		h.finish(w, r, "jobs.cancel", id, err, "Job cancelled", "The job was cancelled")
	}
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, action, id string, err error, title, message string) {
	listing.Audit(r.Context(), h.audit, h.logger, action, "job", []string{id}, err)
	back := backURL(r)
	if err != nil {
		h.pages.FailRedirect(w, r, "Action failed", err, back)
		return
	}
	h.pages.SuccessRedirect(w, r, title, message, back)
}

// backURL returns to the list the action was posted from.
func backURL(r *http.Request) string {
	req := listing.ParseBulk(r, listPath)
	return req.Back
}

type deletePageData struct {
	Job    Job
	Token  string
	Errors map[string]string
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "Delete job", err)
		return
	}
	h.renderDelete(w, r, http.StatusOK, job, nil)
}

func (h *Handler) renderDelete(w http.ResponseWriter, r *http.Request, status int, job Job, errs map[string]string) {
	h.pages.Shell(w, r, view.Page{
		Name:   "pages/jobs_delete.html",
		Title:  "Delete job",
		Status: status,
		Data:   deletePageData{Job: job, Token: listing.DeleteToken, Errors: errs},
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	if err := listing.RequireToken(r.PostFormValue("confirmation")); err != nil {
		var validationErr *shared.ValidationError
		errors.As(err, &validationErr)
		h.renderDelete(w, r, http.StatusBadRequest, Job{ID: id}, map[string]string{"confirmation": validationErr.Message})
		return
	}
	err := h.service.Delete(r.Context(), id)
	listing.Audit(r.Context(), h.audit, h.logger, "jobs.delete", "job", []string{id}, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Delete failed", err, listPath)
		return
	}
	h.pages.SuccessRedirect(w, r, "Job deleted", "The job was removed", listPath)
}
