package detector

import "context"

// AppSource reports the bundle identifier of the frontmost application.
type AppSource interface {
	FrontmostApp() string
}

// ForegroundResolver builds the ForegroundContext for a tick: frontmost
// application plus, for browsers, the active tab address.
type ForegroundResolver struct {
	apps    AppSource
	scripts ScriptRunner
	onError func(appID string, err error)
}

// NewForegroundResolver creates a resolver. onError, when non-nil, is called
// for every failed tab query.
func NewForegroundResolver(apps AppSource, scripts ScriptRunner, onError func(appID string, err error)) *ForegroundResolver {
	return &ForegroundResolver{apps: apps, scripts: scripts, onError: onError}
}

// Resolve never fails: an unknown application yields an empty context and a
// failed or empty tab query yields no tab address. rules decides which
// applications are browsers.
func (r *ForegroundResolver) Resolve(ctx context.Context, rules *RuleSet) ForegroundContext {
	fc := ForegroundContext{ApplicationID: r.apps.FrontmostApp()}
	if fc.ApplicationID == "" || !rules.IsBrowser(fc.ApplicationID) {
		return fc
	}

	script, ok := TabScript(fc.ApplicationID)
	if !ok {
		return fc
	}
	addr, err := r.scripts.Run(ctx, script)
	if err != nil {
		if r.onError != nil {
			r.onError(fc.ApplicationID, err)
		}
		return fc
	}
	if addr != "" {
		fc.TabAddress = addr
		fc.HasTab = true
	}
	return fc
}
