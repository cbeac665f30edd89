package adjust

// SessionOption configures a Session during creation.
// Use functional options to customize Session behavior.
//
// Example:
//
//	// Default executor selection (wgpu if available, else software)
//	s, err := adjust.NewSession(data)
//
//	// Force the software executor
//	s, err := adjust.NewSession(data, adjust.WithExecutorName(adjust.ExecutorSoftware))
type SessionOption func(*sessionOptions)

// sessionOptions holds optional configuration for Session creation.
type sessionOptions struct {
	executor Executor // injected instance; the session does not close it
	name     string   // registry name; constructed and owned by the session
}

// defaultSessionOptions returns the default session options.
func defaultSessionOptions() sessionOptions {
	return sessionOptions{}
}

// WithExecutor sets a custom executor for the Session.
// Use this for dependency injection of preconfigured or test executors.
// The session does not take ownership: Close leaves the executor open so
// it can be shared across sessions.
//
// Example:
//
//	exec := adjust.NewSoftwareExecutor()
//	defer exec.Close()
//	s, err := adjust.NewSession(data, adjust.WithExecutor(exec))
func WithExecutor(e Executor) SessionOption {
	return func(o *sessionOptions) {
		o.executor = e
	}
}

// WithExecutorName selects a registered executor by name. The session
// constructs its own instance and closes it on Close. Construction errors
// surface from NewSession.
func WithExecutorName(name string) SessionOption {
	return func(o *sessionOptions) {
		o.name = name
	}
}
