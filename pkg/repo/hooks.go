package repo

import "fmt"

// HookRunner executes a named hook with a context payload and reports
// whether it vetoed (non-zero exit, mapped by the caller to UserAborted).
// Hook subprocess execution is explicitly a collaborator-facing concern,
// not something this package does itself — the core only emits the
// invocation event; a front-end supplies HookRunner and owns the actual
// os/exec call, environment, and working directory.
type HookRunner func(name string, payload map[string]string) error

// runHook invokes r.Hooks if set, translating a veto into ErrHookVetoed so
// callers can treat it like any other Cancelled-kind failure. A nil Hooks
// is a no-op, matching "hooks are optional" — most Repo uses (tests,
// library embedding) never configure one.
func (r *Repo) runHook(name string, payload map[string]string) error {
	if r.Hooks == nil {
		return nil
	}
	if err := r.Hooks(name, payload); err != nil {
		return fmt.Errorf("hook %q: %w: %v", name, ErrHookVetoed, err)
	}
	return nil
}
