// Package registry holds the in-memory registries that own the canonical packages,
// vulnerabilities and assessments of a batch, and their serialized snapshot.
//
// Registries are not safe for concurrent mutation: every Add into a given registry must
// be serialized by the caller.
package registry

import (
	"go.uber.org/zap"
)

// Option configures a registry.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger rejected input is reported to at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
