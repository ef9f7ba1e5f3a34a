// context.go propagates the submission's project and event id through
// context.Context.

package crashreport

import "context"

// Context key types (unexported to avoid collisions)
type projectKey struct{}
type eventIDKey struct{}

// WithProject returns a context carrying the host project a submission is
// scoped to.
func WithProject(ctx context.Context, project Project) context.Context {
	return context.WithValue(ctx, projectKey{}, project)
}

// ProjectFromContext extracts the project from ctx.
// Returns nil and false if not set.
func ProjectFromContext(ctx context.Context) (Project, bool) {
	v := ctx.Value(projectKey{})
	if v == nil {
		return nil, false
	}
	return v, true
}

// WithEventID returns a context carrying the id of the event being submitted.
// Clients use it to correlate log lines with the submission.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDKey{}, eventID)
}

// EventIDFromContext extracts the event id from ctx.
// Returns empty string and false if not set or if the id is empty.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDKey{}).(string)
	return id, ok && id != ""
}
