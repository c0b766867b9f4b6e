package worker

// Option applies a configuration option to an ExportWorker.
type Option func(*ExportWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *ExportWorker) {
		if name != "" {
			w.name = name
			w.logger = w.logger.Named(name)
		}
	}
}

// WithPreparer replaces the PDF preparation step.
func WithPreparer(prepare Preparer) Option {
	return func(w *ExportWorker) {
		if prepare != nil {
			w.prepare = prepare
		}
	}
}
