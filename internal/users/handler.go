package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/contentforge/admin-console/internal/listing"
	"github.com/contentforge/admin-console/internal/shared"
	"github.com/contentforge/admin-console/internal/view"
)

const listPath = "/users"

// Filter options of the users page.
var filterSpec = listing.FilterSpec{
	Statuses:    Statuses,
	Plans:       Plans,
	SortKeys:    SortKeys,
	DefaultSort: "createdAt",
}

var bulkActions = []listing.Action{
	{Name: ActionActivate, Label: "Activate"},
	{Name: ActionSuspend, Label: "Suspend"},
	{Name: ActionDelete, Label: "Delete", Destructive: true},
}

// Handler serves the user management pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pages     *view.Pages
	audit     *shared.AuditLogger
	sequencer *listing.Sequencer[listing.State]
	validator *validator.Validate
}

// NewHandler builds a users handler.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Pages, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		pages:     pages,
		audit:     audit,
		sequencer: listing.NewSequencer[listing.State](),
		validator: validator.New(),
	}
}

// Sequencer exposes the list state registry.
func (h *Handler) Sequencer() *listing.Sequencer[listing.State] {
	return h.sequencer
}

// MountRoutes registers user routes. The caller applies the guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/bulk", h.bulk)
	r.Get("/{id}", h.show)
	r.Get("/{id}/edit", h.edit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/suspend", h.suspend)
	r.Post("/{id}/activate", h.activate)
	r.Post("/{id}/reset-password", h.resetPassword)
	r.Post("/{id}/reset-usage", h.resetUsage)
	r.Get("/{id}/delete", h.confirmDelete)
	r.Post("/{id}/delete", h.delete)
}

type listPageData struct {
	listing.Page[User]
	Plans    []string
	Statuses []string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := listing.ParseFilters(r, filterSpec)
	selected := listing.NewSelection(r.URL.Query()[listing.SelectionField]...)

	key := listing.Key(shared.SessionID(r.Context()), listPath)
	ticket := h.sequencer.Begin(key)
	result, err := h.service.List(r.Context(), filters.Backend())
	if err != nil {
		h.pages.Fail(w, r, "Users", err)
		return
	}
	page := listing.NewPage(result.Data, result.Pagination, filters, filterSpec, selected, User.Key)
	page.Actions = bulkActions
	if newer, stale := listing.Settle(h.sequencer, ticket, listing.StateOf(page)); stale {
		h.logger.Debug("stale users page discarded", slog.Uint64("seq", ticket.Seq))
		http.Redirect(w, r, newer, http.StatusSeeOther)
		return
	}
	h.pages.Shell(w, r, view.Page{
		Name:  "pages/users_list.html",
		Title: "Users",
		Data:  listPageData{Page: page, Plans: Plans, Statuses: Statuses},
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request) {
	req := listing.ParseBulk(r, listPath)
	action, ok := findAction(req.Action)
	if !ok {
		h.pages.FailRedirect(w, r, "Bulk action failed", &shared.ValidationError{Field: "action", Message: "Unknown action"}, req.BackWithSelection())
		return
	}
	confirmer := listing.NewFormConfirmer(r)
	outcome, err := listing.RunBulk(r.Context(), confirmer, req, action, "user", func(ctx context.Context, ids []string) error {
		err := h.service.Bulk(ctx, ids, action.Name, bulkData(action, r))
		listing.Audit(ctx, h.audit, h.logger, "users.bulk."+action.Name, "user", ids, err)
		return err
	})
	switch {
	case err != nil:
		h.pages.FailRedirect(w, r, "Bulk action failed", err, req.BackWithSelection())
	case outcome == listing.AwaitingConfirmation:
		h.pages.Shell(w, r, view.Page{
			Name:  "pages/confirm.html",
			Title: action.Label + " users",
			Data:  listing.NewConfirmPage(req, *confirmer.Pending(), listPath+"/bulk"),
		})
	case outcome == listing.Cancelled:
		http.Redirect(w, r, req.BackWithSelection(), http.StatusSeeOther)
	default:
		h.pages.SuccessRedirect(w, r, "Bulk action complete", action.Label+" applied to "+strconv.Itoa(req.Selection.Len())+" users", req.Back)
	}
}

func bulkData(action listing.Action, r *http.Request) map[string]any {
	switch action.Name {
	case ActionDelete:
		return map[string]any{"confirm": true}
	case ActionSuspend:
		if reason := strings.TrimSpace(r.PostFormValue("reason")); reason != "" {
			return map[string]any{"reason": reason}
		}
	}
	return nil
}

func findAction(name string) (listing.Action, bool) {
	for _, action := range bulkActions {
		if action.Name == name {
			return action, true
		}
	}
	return listing.Action{}, false
}

type detailPageData struct {
	User User
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "User", err)
		return
	}
	h.pages.Shell(w, r, view.Page{Name: "pages/users_detail.html", Title: user.Username, Data: detailPageData{User: user}})
}

type editForm struct {
	Update Update
	Limits Limits
}

type editPageData struct {
	User   User
	Form   editForm
	Errors map[string]string
	Plans  []string
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "Edit user", err)
		return
	}
	form := editForm{
		Update: Update{Username: user.Username, Email: user.Email, Subscription: user.Subscription, IsActive: user.IsActive},
		Limits: user.Limits(),
	}
	h.renderEdit(w, r, http.StatusOK, user, form, nil)
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, status int, user User, form editForm, errs map[string]string) {
	h.pages.Shell(w, r, view.Page{
		Name:   "pages/users_edit.html",
		Title:  "Edit " + user.Username,
		Status: status,
		Data:   editPageData{User: user, Form: form, Errors: errs, Plans: Plans},
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		h.pages.FailRedirect(w, r, "Update failed", &shared.ValidationError{Message: "Invalid form submission"}, editURL(id))
		return
	}
	form := parseEditForm(r)
	if errs := h.validate(form); len(errs) > 0 {
		h.renderEdit(w, r, http.StatusBadRequest, User{MongoID: id, Username: form.Update.Username}, form, errs)
		return
	}
	err := h.service.Update(r.Context(), id, form.Update)
	if err == nil {
		err = h.service.UpdateLimits(r.Context(), id, form.Limits)
	}
	listing.Audit(r.Context(), h.audit, h.logger, "users.update", "user", []string{id}, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Update failed", err, editURL(id))
		return
	}
	h.pages.SuccessRedirect(w, r, "User updated", form.Update.Username+" was saved", userURL(id))
}

func parseEditForm(r *http.Request) editForm {
	plan := r.PostFormValue("plan")
	if !slices.Contains(Plans, plan) {
		plan = ""
	}
	return editForm{
		Update: Update{
			Username: strings.TrimSpace(r.PostFormValue("username")),
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Subscription: Subscription{
				Plan:   plan,
				Status: strings.TrimSpace(r.PostFormValue("subscription_status")),
			},
			IsActive: r.PostFormValue("is_active") != "",
		},
		Limits: Limits{
			MonthlyJobs:        formInt(r, "monthly_jobs", DefaultLimits.MonthlyJobs),
			MonthlyTokens:      formInt(r, "monthly_tokens", DefaultLimits.MonthlyTokens),
			DailyJobs:          formInt(r, "daily_jobs", DefaultLimits.DailyJobs),
			MaxRequestsPerHour: formInt(r, "max_requests_per_hour", DefaultLimits.MaxRequestsPerHour),
		},
	}
}

func (h *Handler) validate(form editForm) map[string]string {
	errs := map[string]string{}
	collect := func(err error) {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return
		}
		for _, fe := range fieldErrs {
			errs[fe.Field()] = fieldMessage(fe)
		}
	}
	collect(h.validator.Struct(form.Update))
	collect(h.validator.Struct(form.Limits))
	if form.Update.Subscription.Plan == "" {
		errs["Plan"] = "Choose a plan"
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Enter a valid email address"
	case "min", "max":
		return fe.Field() + " must be between 2 and 64 characters"
	case "gte":
		return fe.Field() + " cannot be negative"
	default:
		return fe.Error()
	}
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	reason := strings.TrimSpace(r.PostFormValue("reason"))
	err := h.service.Suspend(r.Context(), id, reason)
	h.finish(w, r, "users.suspend", id, err, "User suspended", "The account can no longer sign in")
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.service.Activate(r.Context(), id)
	h.finish(w, r, "users.activate", id, err, "User activated", "The account is active again")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	h.confirmed(w, r, listing.Prompt{
		Title:   "Reset password",
		Message: "Send a password reset email to this user?",
	}, "reset-password", "users.reset_password", h.service.ResetPassword, "Password reset", "A reset email was sent")
}

func (h *Handler) resetUsage(w http.ResponseWriter, r *http.Request) {
	h.confirmed(w, r, listing.Prompt{
		Title:   "Reset usage",
		Message: "Reset this user's monthly usage counters?",
	}, "reset-usage", "users.reset_usage", h.service.ResetUsage, "Usage reset", "Monthly usage was reset")
}

// confirmed runs a single-prompt action on one user.
func (h *Handler) confirmed(w http.ResponseWriter, r *http.Request, prompt listing.Prompt, suffix, auditAction string, do func(context.Context, string) error, title, message string) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	confirmer := listing.NewFormConfirmer(r)
	outcome, err := listing.RunOne(r.Context(), confirmer, prompt, func(ctx context.Context) error {
		return do(ctx, id)
	})
	switch outcome {
	case listing.AwaitingConfirmation:
		h.pages.Shell(w, r, view.Page{
			Name:  "pages/confirm.html",
			Title: prompt.Title,
			Data:  listing.ConfirmPage{Prompt: *confirmer.Pending(), Back: userURL(id), ActionURL: userURL(id) + "/" + suffix},
		})
	case listing.Cancelled:
		http.Redirect(w, r, userURL(id), http.StatusSeeOther)
	default:
		h.finish(w, r, auditAction, id, err, title, message)
	}
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, action, id string, err error, title, message string) {
	listing.Audit(r.Context(), h.audit, h.logger, action, "user", []string{id}, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Action failed", err, userURL(id))
		return
	}
	h.pages.SuccessRedirect(w, r, title, message, userURL(id))
}

type deletePageData struct {
	User   User
	Token  string
	Errors map[string]string
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, "Delete user", err)
		return
	}
	h.renderDelete(w, r, http.StatusOK, user, "", nil)
}

func (h *Handler) renderDelete(w http.ResponseWriter, r *http.Request, status int, user User, banner string, errs map[string]string) {
	h.pages.Shell(w, r, view.Page{
		Name:   "pages/users_delete.html",
		Title:  "Delete user",
		Status: status,
		Banner: banner,
		Data:   deletePageData{User: user, Token: listing.DeleteToken, Errors: errs},
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	if err := listing.RequireToken(r.PostFormValue("confirmation")); err != nil {
		var validationErr *shared.ValidationError
		errors.As(err, &validationErr)
		h.renderDelete(w, r, http.StatusBadRequest, User{MongoID: id, Username: r.PostFormValue("username")}, "", map[string]string{"confirmation": validationErr.Message})
		return
	}
	err := h.service.Delete(r.Context(), id)
	listing.Audit(r.Context(), h.audit, h.logger, "users.delete", "user", []string{id}, err)
	if err != nil {
		h.pages.FailRedirect(w, r, "Delete failed", err, userURL(id))
		return
	}
	h.pages.SuccessRedirect(w, r, "User deleted", "The user and their data were removed", listPath)
}

func userURL(id string) string {
	return listPath + "/" + id
}

func editURL(id string) string {
	return userURL(id) + "/edit"
}

func formInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(key)))
	if err != nil {
		return fallback
	}
	return n
}
