// File: lixenwraith/properties/builder.go
package properties

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ValidatorFunc defines the signature for a function that can validate a Persistent instance.
// It receives the fully loaded handle and should return an error if validation fails.
type ValidatorFunc func(p *Persistent) error

// Builder provides a fluent interface for opening persistent properties
type Builder struct {
	opts          PersistOptions
	file          string
	defaultsFile  string
	defaultValues map[string]any
	required      []string
	args          []string
	err           error
	validators    []ValidatorFunc
}

// NewBuilder creates a new builder with DefaultPersistOptions
func NewBuilder() *Builder {
	return &Builder{
		opts:       DefaultPersistOptions(),
		args:       os.Args[1:],
		validators: make([]ValidatorFunc, 0),
	}
}

// WithFile sets the properties file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithArgs sets the command-line arguments searched by WithFileDiscovery
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithDefaults sets the defaults table
func (b *Builder) WithDefaults(defaults *Properties) *Builder {
	b.opts.Defaults = defaults
	return b
}

// WithDefaultsFile loads defaults from a read-only properties file that is not watched.
// The defaults table set with WithDefaults, if any, becomes its defaults.
func (b *Builder) WithDefaultsFile(path string) *Builder {
	b.defaultsFile = path
	return b
}

// WithDefaultValues adds defaults from a map of structured keys to values.
// They take precedence over WithDefaults and WithDefaultsFile.
func (b *Builder) WithDefaultValues(values map[string]any) *Builder {
	if b.defaultValues == nil {
		b.defaultValues = make(map[string]any, len(values))
	}
	for k, v := range values {
		b.defaultValues[k] = v
	}
	return b
}

// WithReadOnly opens the file for reading only
func (b *Builder) WithReadOnly(readOnly bool) *Builder {
	b.opts.ReadOnly = readOnly
	return b
}

// WithPollInterval sets the interval of the shared monitor
func (b *Builder) WithPollInterval(interval time.Duration) *Builder {
	if interval < MinPollInterval {
		b.err = errors.Join(b.err, fmt.Errorf("poll interval %s below minimum %s", interval, MinPollInterval))
		return b
	}
	b.opts.PollInterval = interval
	return b
}

// WithMonitor registers the file with a specific monitor instead of a shared one
func (b *Builder) WithMonitor(m *Monitor) *Builder {
	b.opts.Monitor = m
	return b
}

// WithoutWatch disables file monitoring
func (b *Builder) WithoutWatch() *Builder {
	b.opts.DisableWatch = true
	return b
}

// WithLockTimeout bounds the wait for the file lock
func (b *Builder) WithLockTimeout(timeout time.Duration) *Builder {
	b.opts.LockTimeout = timeout
	return b
}

// WithRegistry sets the converter registry
func (b *Builder) WithRegistry(r *Registry) *Builder {
	b.opts.Registry = r
	return b
}

// WithLogger sets the diagnostics logger
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.opts.Logger = logger
	return b
}

// WithRequired lists keys that must resolve after loading
func (b *Builder) WithRequired(keys ...string) *Builder {
	b.required = append(b.required, keys...)
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build opens the Persistent instance with all specified options
func (b *Builder) Build() (*Persistent, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.file == "" {
		return nil, errors.New("no properties file configured")
	}

	defaults, err := b.buildDefaults()
	if err != nil {
		return nil, err
	}
	opts := b.opts
	opts.Defaults = defaults

	pp, err := OpenWithOptions(b.file, opts)
	if err != nil {
		return nil, err
	}

	if err := pp.Validate(b.required...); err != nil {
		pp.Close()
		return nil, fmt.Errorf("properties validation failed: %w", err)
	}

	// Run validators
	for _, validator := range b.validators {
		if err := validator(pp); err != nil {
			pp.Close()
			return nil, fmt.Errorf("properties validation failed: %w", err)
		}
	}
	return pp, nil
}

// buildDefaults layers the default sources: values over file over table.
func (b *Builder) buildDefaults() (*Properties, error) {
	defaults := b.opts.Defaults

	if b.defaultsFile != "" {
		d, err := LoadFile(b.defaultsFile, defaults, b.opts.Registry, b.opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load defaults: %w", err)
		}
		defaults = d
	}

	if len(b.defaultValues) > 0 {
		d := NewWithRegistry(defaults, b.opts.Registry)
		var errs []error
		for k, v := range b.defaultValues {
			if err := d.Set(k, v); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
		d.SetReadOnly()
		defaults = d
	}
	return defaults, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Persistent {
	pp, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("properties build failed: %v", err))
	}
	return pp
}

// BuildAndScan builds and decodes the sub-table at key into the provided target struct pointer
func (b *Builder) BuildAndScan(key string, target any) (*Persistent, error) {
	pp, err := b.Build()
	if err != nil {
		return nil, err
	}

	if err := pp.Scan(key, target); err != nil {
		pp.Close()
		return nil, fmt.Errorf("failed to scan properties into target: %w", err)
	}
	return pp, nil
}
