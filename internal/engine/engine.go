package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
)

// IDGenerator generates run identifiers for conversion calls.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Runtime is the conversion entry point for one API.
//
// Thread-safety model:
//   - New compiles every constraint of every model once; nothing is mutated
//     afterwards, so Normalize, Convert and Default are safe from any goroutine.
//   - A single payload tree must not be converted by two calls at once. The
//     runtime never writes to the source payload; destination trees are
//     created per call.
type Runtime struct {
	api      *schema.ApiModel
	registry *Registry
	logger   *slog.Logger
	ids      IDGenerator

	compiled map[*schema.Property]compiledProperty
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the diagnostic logger. The default discards everything;
// logging never changes conversion results.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRegistry replaces the constraint registry (default: DefaultRegistry()).
func WithRegistry(reg *Registry) Option {
	return func(r *Runtime) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithIDGenerator sets the run ID generator (default: UUIDv7Generator).
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runtime) {
		if g != nil {
			r.ids = g
		}
	}
}

// New builds a Runtime for an API. Every defaulting and conversion
// constraint in the catalog is compiled here; an unknown constraint name or
// bad arguments fail New rather than surfacing during a conversion.
func New(api *schema.ApiModel, opts ...Option) (*Runtime, error) {
	if api == nil {
		return nil, fmt.Errorf("engine: nil api model")
	}

	r := &Runtime{
		api:      api,
		registry: DefaultRegistry(),
		logger:   slog.New(slog.DiscardHandler),
		ids:      UUIDv7Generator{},
		compiled: make(map[*schema.Property]compiledProperty),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, m := range api.Normalized {
		if err := r.compileModel(m, "normalized."+m.Name); err != nil {
			return nil, err
		}
	}
	for _, v := range api.Versions {
		for _, t := range v.Types {
			if err := r.compileModel(t.Model, "versions."+v.Name+"."+t.Name()); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

func (r *Runtime) compileModel(m *schema.ApiTypeModel, path string) error {
	for _, p := range m.Properties {
		if _, done := r.compiled[p]; done {
			continue
		}
		cp, err := compileProperty(r.registry, p)
		if err != nil {
			return fmt.Errorf("engine: %s: %w", path, err)
		}
		r.compiled[p] = cp
		if p.IsComplex() {
			if err := r.compileModel(p.ComplexDataTypeOrPanic(), path+"."+p.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// API returns the catalog entry this runtime converts.
func (r *Runtime) API() *schema.ApiModel {
	return r.api
}

// Result is the outcome of one conversion call.
type Result struct {
	RunID   string            `json:"run_id"`
	Payload ir.IRObject       `json:"payload"`
	Errors  []ConversionError `json:"errors"`
	Trace   []Step            `json:"trace"`
}

// OK reports whether the run recorded no soft errors.
func (res *Result) OK() bool {
	return len(res.Errors) == 0
}

// Normalize converts a versioned payload into the normalized shape.
//
// The returned error is non-nil only for caller mistakes (unknown version or
// type, cancelled context). Data problems are soft errors in Result.Errors.
func (r *Runtime) Normalize(ctx context.Context, version, typeName string, versioned ir.IRObject) (*Result, error) {
	return r.run(ctx, ToNormalized, version, typeName, versioned)
}

// Convert converts a normalized payload into the given version's shape.
func (r *Runtime) Convert(ctx context.Context, version, typeName string, normalized ir.IRObject) (*Result, error) {
	return r.run(ctx, ToVersioned, version, typeName, normalized)
}

// Run dispatches on direction. Used by callers that store the direction.
func (r *Runtime) Run(ctx context.Context, dir Direction, version, typeName string, payload ir.IRObject) (*Result, error) {
	return r.run(ctx, dir, version, typeName, payload)
}

func (r *Runtime) run(ctx context.Context, dir Direction, version, typeName string, source ir.IRObject) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vt, err := r.api.Lookup(version, typeName)
	if err != nil {
		return nil, &LookupError{API: r.api.Name, Version: version, Type: typeName, Err: err}
	}
	if source == nil {
		source = ir.IRObject{}
	}

	st := r.newRun(dir, version, typeName)
	dest := ir.IRObject{}

	c := &Context{Direction: dir, run: st}
	if dir == ToNormalized {
		c.RootVersionedModel, c.RootVersioned = vt.Model, source
		c.RootNormalizedModel, c.RootNormalized = vt.Normalized, dest
	} else {
		c.RootNormalizedModel, c.RootNormalized = vt.Normalized, source
		c.RootVersionedModel, c.RootVersioned = vt.Model, dest
	}
	c.VersionedModel, c.Versioned = c.RootVersionedModel, c.RootVersioned
	c.NormalizedModel, c.Normalized = c.RootNormalizedModel, c.RootNormalized

	st.logger.DebugContext(ctx, "conversion started")
	c.convertLevel()
	c.defaultLevel()
	st.logger.DebugContext(ctx, "conversion finished",
		"errors", len(st.errors),
		"steps", len(st.trace))

	return st.result(dest), nil
}

// Default runs the defaulting constraints of model over payload in place,
// recursing into nested objects.
func (r *Runtime) Default(model *schema.ApiTypeModel, payload ir.IRObject) *Result {
	st := r.newRun(ToNormalized, "", model.Name)
	if payload == nil {
		payload = ir.IRObject{}
	}
	c := &Context{
		Direction:           ToNormalized,
		RootNormalizedModel: model,
		RootNormalized:      payload,
		NormalizedModel:     model,
		Normalized:          payload,
		run:                 st,
	}
	c.defaultLevel()
	return st.result(payload)
}

func (r *Runtime) newRun(dir Direction, version, typeName string) *run {
	id := r.ids.Generate()
	local := make(map[*schema.Property]compiledProperty)

	st := &run{
		id: id,
		logger: r.logger.With(
			"run_id", id,
			"api", r.api.Name,
			"version", version,
			"type", typeName,
			"direction", dir.String(),
		),
		clock: NewClock(),
	}

	// Models outside the catalog (e.g. passed to Default) are compiled per
	// run so the shared map stays read-only.
	st.resolved = func(p *schema.Property) compiledProperty {
		if cp, ok := r.compiled[p]; ok {
			return cp
		}
		if cp, ok := local[p]; ok {
			return cp
		}
		cp, err := compileProperty(r.registry, p)
		if err != nil {
			st.errors = append(st.errors, ConversionError{Code: ErrCodeConstraint, Path: p.Name, Message: err.Error()})
			st.logger.Error(err.Error(), "code", string(ErrCodeConstraint), "path", p.Name)
		}
		local[p] = cp
		return cp
	}
	return st
}

func (st *run) result(payload ir.IRObject) *Result {
	errs := st.errors
	if errs == nil {
		errs = []ConversionError{}
	}
	trace := st.trace
	if trace == nil {
		trace = []Step{}
	}
	return &Result{RunID: st.id, Payload: payload, Errors: errs, Trace: trace}
}
