package listing

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/contentforge/admin-console/internal/shared"
)

// DeleteToken must be typed verbatim before a single destructive action.
const DeleteToken = "DELETE"

// Prompt is one confirmation question.
type Prompt struct {
	Title       string
	Message     string
	Destructive bool
	Step        int
	Steps       int
}

// Confirmer asks the operator to confirm a prompt. A false answer without an
// error means the operator declined.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// Action describes a mutation offered by a list page.
type Action struct {
	Name        string
	Label       string
	Destructive bool
}

// BulkPrompts returns the confirmations a bulk action needs: two for a
// destructive one, one otherwise.
func BulkPrompts(action Action, count int, noun string) []Prompt {
	if count != 1 {
		noun += "s"
	}
	first := Prompt{
		Title:       action.Label,
		Message:     fmt.Sprintf("%s %d %s?", action.Label, count, noun),
		Destructive: action.Destructive,
	}
	prompts := []Prompt{first}
	if action.Destructive {
		prompts = append(prompts, Prompt{
			Title:       action.Label,
			Message:     fmt.Sprintf("This permanently removes %d %s and cannot be undone. Continue?", count, noun),
			Destructive: true,
		})
	}
	for i := range prompts {
		prompts[i].Step = i + 1
		prompts[i].Steps = len(prompts)
	}
	return prompts
}

// Run asks every prompt in order and dispatches only when all were confirmed.
func Run(ctx context.Context, c Confirmer, prompts []Prompt, dispatch func(ctx context.Context) error) (bool, error) {
	for _, prompt := range prompts {
		ok, err := c.Confirm(ctx, prompt)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, dispatch(ctx)
}

// RequireToken checks the typed confirmation of a single destructive action.
// The comparison is exact; case and whitespace matter.
func RequireToken(input string) error {
	if input != DeleteToken {
		return &shared.ValidationError{Field: "confirmation", Message: "Type " + DeleteToken + " to confirm"}
	}
	return nil
}

// confirmStepKey holds the last prompt shown to the session.
const confirmStepKey = "confirm_step"

// FormConfirmer answers prompts from a multi-step form. Each step posts the
// number of prompts confirmed so far; the first unconfirmed prompt becomes
// Pending and is rendered as the next confirmation page. A posted step only
// counts when the session recorded that prompt as shown for the same target,
// action and selection, so a replayed or hand-built form starts over.
type FormConfirmer struct {
	Confirmed int
	Cancelled bool
	pending   *Prompt
	session   *shared.Session
	scope     string
}

// NewFormConfirmer reads the confirmation state of a POST and consumes the
// step recorded in the session.
func NewFormConfirmer(r *http.Request) *FormConfirmer {
	posted, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("confirmed")))
	if err != nil || posted < 0 {
		posted = 0
	}
	f := &FormConfirmer{
		Cancelled: r.PostFormValue("decision") == "cancel",
		session:   shared.SessionFromContext(r.Context()),
		scope:     confirmScope(r),
	}
	if f.session != nil {
		if posted > 0 && f.session.Get(confirmStepKey) == f.stepValue(posted) {
			f.Confirmed = posted
		}
		f.session.Delete(confirmStepKey)
	}
	return f
}

func confirmScope(r *http.Request) string {
	ids := append([]string(nil), r.PostForm[SelectionField]...)
	sort.Strings(ids)
	sum := blake2b.Sum256([]byte(r.URL.Path + "\n" + r.PostFormValue("action") + "\n" + strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:12])
}

func (f *FormConfirmer) stepValue(step int) string {
	return f.scope + ":" + strconv.Itoa(step)
}

// Confirm implements Confirmer.
func (f *FormConfirmer) Confirm(_ context.Context, prompt Prompt) (bool, error) {
	if f.Cancelled {
		return false, nil
	}
	if prompt.Step <= f.Confirmed {
		return true, nil
	}
	p := prompt
	f.pending = &p
	if f.session != nil {
		f.session.Set(confirmStepKey, f.stepValue(p.Step))
	}
	return false, nil
}

// Pending is the prompt to show next, or nil when the flow finished or the
// operator cancelled.
func (f *FormConfirmer) Pending() *Prompt {
	return f.pending
}

// RunOne confirms a single prompt before dispatching.
func RunOne(ctx context.Context, c Confirmer, prompt Prompt, dispatch func(ctx context.Context) error) (Outcome, error) {
	prompt.Step, prompt.Steps = 1, 1
	ran, err := Run(ctx, c, []Prompt{prompt}, dispatch)
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
