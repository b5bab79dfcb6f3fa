package content

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

const listPath = "/content"

var filterSpec = listing.FilterSpec{
	Statuses:    Statuses,
	SortKeys:    SortKeys,
	DefaultSort: "createdAt",
}

var deleteAction = listing.Action{Name: ActionDelete, Label: "Delete", Destructive: true}

// Handler serves the content moderation pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pages     *view.Pages
	audit     *shared.AuditLogger
	sequencer *listing.Sequencer[listing.State]
}

// NewHandler builds a content handler.
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

// MountRoutes registers content routes. The caller applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/bulk", h.bulk)
	r.Get("/{id}", h.show)
	r.Get("/{id}/delete", h.confirmDelete)
	r.Post("/{id}/delete", h.delete)
}

type listPageData struct {
	listing.Page[Group]
	Statuses []string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := listing.ParseFilters(r, filterSpec)
	selected := listing.NewSelection(r.URL.Query()[listing.SelectionField]...)

	ticket := h.sequencer.Begin(listing.Key(shared.SessionID(r.Context()), listPath))
	result, err := h.service.List(r.Context(), filters.Backend())
	if err != nil {
		h.pages.Fail(w, r, "Content", err)
		return
	}
	page := listing.NewPage(result.Data, result.Pagination, filters, filterSpec, selected, Group.Key)
	page.Actions = []listing.Action{deleteAction}
	if newer, stale := listing.Settle(h.sequencer, ticket, listing.StateOf(page)); stale {
		h.logger.Debug("stale content page discarded", slog.Uint64("seq", ticket.Seq))
		http.Redirect(w, r, newer, http.StatusSeeOther)
		return
	}
	h.pages.Shell(w, r, view.Page{
		Name:  "pages/content_list.html",
		Title: "Content",
		Data:  listPageData{Page: page, Statuses: Statuses},
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request) {
	req := listing.ParseBulk(r, listPath)
	if req.Action != ActionDelete {
		h.pages.FailRedirect(w, r, "Bulk action failed", &shared.ValidationError{Field: "action", Message: "Unknown action"}, req.BackWithSelection())
		return
	}
	confirmer := listing.NewFormConfirmer(r)
	outcome, err := listing.RunBulk(r.Context(), confirmer, req, deleteAction, "content item", func(ctx context.Context, ids []string) error {
		err := h.service.Bulk(ctx, ids, ActionDelete, map[string]any{"confirm": true})
		listing.Audit(ctx, h.audit, h.logger, "content.bulk.delete", "content_group", ids, err)
		return err
	})
	switch {
	case err != nil:
		h.pages.FailRedirect(w, r, "Bulk delete failed", err, req.BackWithSelection())
	case outcome == listing.AwaitingConfirmation:
		h.pages.Shell(w, r, view.Page{
			Name:  "pages/confirm.html",
			Title: "Delete content",
			Data:  listing.NewConfirmPage(req, *confirmer.Pending(), listPath+"/bulk"),
		})
	case outcome == listing.Cancelled:
		http.Redirect(w, r, req.BackWithSelection(), http.StatusSeeOther)
	default:
		h.pages.SuccessRedirect(w, r, "Content deleted", strconv.Itoa(req.Selection.Len())+" items deleted", req.Back)
	}
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "Content", err)
		return
	}
	h.pages.Shell(w, r, view.Page{Name: "pages/content_detail.html", Title: group.Title, Data: struct{ Group Group }{group}})
}

type deletePageData struct {
	Group  Group
	Token  string
	Errors map[string]string
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "Delete content", err)
		return
	}
	h.renderDelete(w, r, http.StatusOK, group, nil)
}

func (h *Handler) renderDelete(w http.ResponseWriter, r *http.Request, status int, group Group, errs map[string]string) {
	h.pages.Shell(w, r, view.Page{
		Name:   "pages/content_delete.html",
		Title:  "Delete content",
		Status: status,
		Data:   deletePageData{Group: group, Token: listing.DeleteToken, Errors: errs},
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	if err := listing.RequireToken(r.PostFormValue("confirmation")); err != nil {
		var validationErr *shared.ValidationError
		errors.As(err, &validationErr)
		h.renderDelete(w, r, http.StatusBadRequest, Group{ID: id, Title: r.PostFormValue("title")}, map[string]string{"confirmation": validationErr.Message})
		return
	}
	err := h.service.Delete(r.Context(), id)
	listing.Audit(r.Context(), h.audit, h.logger, "content.delete", "content_group", []string{id}, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Delete failed", err, listPath+"/"+id)
		return
	}
	h.pages.SuccessRedirect(w, r, "Content deleted", "The content group was removed", listPath)
}
