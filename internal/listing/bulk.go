package listing

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/contentforge/admin-console/internal/shared"
)

// BulkRequest is a bulk action form post.
type BulkRequest struct {
	Action    string
	Selection Selection
	Back      string
}

// ParseBulk reads the action, the selected ids and the list URL to return to.
func ParseBulk(r *http.Request, listPath string) BulkRequest {
	_ = r.ParseForm()
	back := strings.TrimSpace(r.PostFormValue("back"))
	if !strings.HasPrefix(back, listPath) {
		back = listPath
	}
	return BulkRequest{
		Action:    strings.TrimSpace(r.PostFormValue("action")),
		Selection: NewSelection(r.PostForm[SelectionField]...),
		Back:      back,
	}
}

// BackWithSelection is the list URL keeping the selection checked.
func (b BulkRequest) BackWithSelection() string {
	u, err := url.Parse(b.Back)
	if err != nil {
		return b.Back
	}
	q := u.Query()
	q.Del(SelectionField)
	for _, id := range b.Selection.IDs() {
		q.Add(SelectionField, id)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ConfirmPage is the data of the confirmation step template.
type ConfirmPage struct {
	Prompt    Prompt
	Action    string
	IDs       []string
	Back      string
	ActionURL string
}

// NewConfirmPage prepares the next confirmation page.
func NewConfirmPage(b BulkRequest, prompt Prompt, actionURL string) ConfirmPage {
	return ConfirmPage{
		Prompt:    prompt,
		Action:    b.Action,
		IDs:       b.Selection.IDs(),
		Back:      b.Back,
		ActionURL: actionURL,
	}
}

// Outcome is where a bulk post ended.
type Outcome int

const (
	// Dispatched means every prompt was confirmed and the action ran.
	Dispatched Outcome = iota
	// AwaitingConfirmation means a prompt still has to be shown.
	AwaitingConfirmation
	// Cancelled means the operator declined; nothing was sent.
	Cancelled
)

type pendingPrompter interface {
	Pending() *Prompt
}

// RunBulk confirms and dispatches a bulk action over the selection.
func RunBulk(ctx context.Context, c Confirmer, req BulkRequest, action Action, noun string, dispatch func(ctx context.Context, ids []string) error) (Outcome, error) {
	if req.Selection.Empty() {
		return Cancelled, &shared.ValidationError{Field: "selection", Message: "Select at least one " + noun}
	}
	ids := req.Selection.IDs()
	ran, err := Run(ctx, c, BulkPrompts(action, len(ids), noun), func(ctx context.Context) error {
		return dispatch(ctx, ids)
	})
	if ran {
		return Dispatched, err
	}
	if err != nil {
		return Cancelled, err
	}
	if p, ok := c.(pendingPrompter); ok && p.Pending() != nil {
		return AwaitingConfirmation, nil
	}
	return Cancelled, nil
}
