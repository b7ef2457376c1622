package configx

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/Abraxas-365/rxintake/errx"
)

var (
	ErrorRegistry = errx.NewRegistry("CONFIG")

	CodeSourceFailed = ErrorRegistry.Register("SOURCE_FAILED", errx.TypeSystem,
		http.StatusInternalServerError, "Configuration source could not be loaded")
	CodeMissingKeys = ErrorRegistry.Register("MISSING_KEYS", errx.TypeValidation,
		http.StatusInternalServerError, "Required configuration keys are missing")
	CodeInvalid = ErrorRegistry.Register("INVALID", errx.TypeValidation,
		http.StatusInternalServerError, "Configuration is invalid")
)

// Source priorities. Higher wins.
const (
	PriorityDefault = 0
	PriorityDotEnv  = 10
	PriorityMap     = 20
	PriorityEnv     = 30
)

// Config is a read/write view over merged configuration sources.
// Keys are dot separated: "server.port".
type Config interface {
	Get(key string) Value
	Set(key string, val any)
	Has(key string) bool
	AllSettings() map[string]any
}

// Source loads a nested map of settings.
type Source interface {
	Load() (map[string]any, error)
	Name() string
	Priority() int
	// Optional sources are skipped when they fail to load (a missing .env file).
	Optional() bool
}

type configuration struct {
	sync.RWMutex
	values map[string]any
}

func newConfiguration() *configuration {
	return &configuration{values: make(map[string]any)}
}

// Get retrieves a configuration value by key
func (c *configuration) Get(key string) Value {
	c.RLock()
	defer c.RUnlock()

	if key == "" {
		return newValue("", c.values)
	}
	return newValue(key, lookup(c.values, strings.Split(key, ".")))
}

// Set sets a configuration value, creating intermediate maps
func (c *configuration) Set(key string, val any) {
	c.Lock()
	defer c.Unlock()
	insert(c.values, strings.Split(key, "."), val)
}

// Has checks if a configuration key exists
func (c *configuration) Has(key string) bool {
	c.RLock()
	defer c.RUnlock()
	return lookup(c.values, strings.Split(key, ".")) != nil
}

// AllSettings returns a deep copy of all settings
func (c *configuration) AllSettings() map[string]any {
	c.RLock()
	defer c.RUnlock()
	return clone(c.values)
}

func (c *configuration) merge(data map[string]any) {
	c.Lock()
	defer c.Unlock()
	overlay(c.values, data)
}

// Builder assembles a Config from prioritized sources
type Builder interface {
	FromDotEnv(path string) Builder
	FromEnv(prefix string) Builder
	FromMap(values map[string]any, name string) Builder
	WithDefaults(defaults map[string]any) Builder
	WithSource(source Source) Builder
	Require(keys ...string) Builder
	WithValidation(validator func(config Config) error) Builder
	Build() (Config, error)
}

type builder struct {
	sources    []Source
	required   []string
	validators []func(Config) error
}

// NewBuilder creates a new configuration builder
func NewBuilder() Builder {
	return &builder{}
}

func (b *builder) FromDotEnv(path string) Builder {
	return b.WithSource(NewDotEnvSource(path, PriorityDotEnv))
}

func (b *builder) FromEnv(prefix string) Builder {
	return b.WithSource(NewEnvSource(prefix, PriorityEnv))
}

func (b *builder) FromMap(values map[string]any, name string) Builder {
	return b.WithSource(NewMapSource(values, name, PriorityMap))
}

func (b *builder) WithDefaults(defaults map[string]any) Builder {
	return b.WithSource(NewMapSource(defaults, "defaults", PriorityDefault))
}

func (b *builder) WithSource(source Source) Builder {
	b.sources = append(b.sources, source)
	return b
}

// Require marks keys that must resolve to a non-empty value after merging
func (b *builder) Require(keys ...string) Builder {
	b.required = append(b.required, keys...)
	return b
}

func (b *builder) WithValidation(validator func(config Config) error) Builder {
	b.validators = append(b.validators, validator)
	return b
}

// Build loads every source lowest priority first and checks requirements
func (b *builder) Build() (Config, error) {
	sources := slices.Clone(b.sources)
	slices.SortStableFunc(sources, func(x, y Source) int {
		return cmp.Compare(x.Priority(), y.Priority())
	})

	cfg := newConfiguration()
	for _, source := range sources {
		data, err := source.Load()
		if err != nil {
			if source.Optional() {
				continue
			}
			return nil, ErrorRegistry.New(CodeSourceFailed).
				WithCause(err).
				WithDetail("source", source.Name())
		}
		cfg.merge(data)
	}

	var missing []string
	for _, key := range b.required {
		if strings.TrimSpace(cfg.Get(key).AsString()) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, ErrorRegistry.New(CodeMissingKeys).WithDetail("keys", missing)
	}

	for _, validate := range b.validators {
		if err := validate(cfg); err != nil {
			return nil, ErrorRegistry.New(CodeInvalid).WithCause(err)
		}
	}

	return cfg, nil
}
