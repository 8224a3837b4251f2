package viewer

import (
	"bytes"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// Placeholder is the token in index.html replaced by the session identifier.
const Placeholder = "LANDMARK_SURVEY_ID"

// InjectionStatus is the outcome of [Inject].
type InjectionStatus int

const (
	Injected           InjectionStatus = iota // identifier present in the markup
	EmptyIdentifier                           // no identifier supplied
	MissingPlaceholder                        // markup has no placeholder
	NotVerified                               // identifier absent after substitution
)

func (s InjectionStatus) String() string {
	switch s {
	case Injected:
		return "injected"
	case EmptyIdentifier:
		return "empty identifier"
	case MissingPlaceholder:
		return "missing placeholder"
	case NotVerified:
		return "identifier not found after substitution"
	}
	return "unknown"
}

// InjectionResult reports the outcome of substituting the session
// identifier. Markup holds the substituted document only when OK.
type InjectionResult struct {
	Markup   []byte
	Replaced int
	Status   InjectionStatus
	ID       string
}

// OK reports whether the identifier was injected and verified.
func (r InjectionResult) OK() bool { return r.Status == Injected }

// Err returns an INJECTION_FAILED error for any outcome other than
// [Injected], and nil otherwise.
func (r InjectionResult) Err() error {
	if r.OK() {
		return nil
	}
	return rperrors.New(rperrors.ErrCodeInjection, "session identifier %q: %s", r.ID, r.Status)
}

// Inject replaces every occurrence of [Placeholder] in markup with id and
// checks that id then appears verbatim. The input is not modified.
func Inject(markup []byte, id string) InjectionResult {
	res := InjectionResult{ID: id}
	if id == "" {
		res.Status = EmptyIdentifier
		return res
	}
	ph := []byte(Placeholder)
	res.Replaced = bytes.Count(markup, ph)
	if res.Replaced == 0 {
		res.Status = MissingPlaceholder
		return res
	}
	out := bytes.ReplaceAll(markup, ph, []byte(id))
	if !bytes.Contains(out, []byte(id)) {
		res.Status = NotVerified
		return res
	}
	res.Markup = out
	res.Status = Injected
	return res
}
