package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/harun/chatrelay/internal/tracing"
	"github.com/harun/chatrelay/pkg/backend"
	"github.com/harun/chatrelay/pkg/conversation"
	"github.com/harun/chatrelay/pkg/persona"
	"github.com/harun/chatrelay/pkg/provider"
	"github.com/harun/chatrelay/pkg/store"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// PersonaResolver maps a persona tag to its instruction
type PersonaResolver interface {
	Resolve(tag string) (persona.Instruction, error)
}

// Config holds the dispatcher's dependencies. Sessions, Projects and Blobs
// are optional.
type Config struct {
	Personas PersonaResolver
	Invoker  backend.Invoker
	Sessions store.SessionStore
	Projects store.ProjectStore
	Blobs    store.BlobStore

	// Profile applies unless the persona names its own token profile.
	// The zero value selects provider.StandardProfile.
	Profile      provider.Profile
	DefaultModel string
	StoreKind    string // metrics label for session persistence failures
	Logger       zerolog.Logger

	// OnTransition, when set, observes every state change
	OnTransition func(ctx context.Context, from, to State)

	now func() time.Time
}

// Dispatcher runs chat requests. It holds only immutable dependencies and is
// safe for concurrent use.
type Dispatcher struct {
	personas     PersonaResolver
	invoker      backend.Invoker
	sessions     store.SessionStore
	projects     store.ProjectStore
	blobs        store.BlobStore
	profile      provider.Profile
	defaultModel string
	storeKind    string
	logger       zerolog.Logger
	onTransition func(ctx context.Context, from, to State)
	now          func() time.Time
}

// New validates cfg and builds a Dispatcher
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Personas == nil {
		return nil, errors.New("persona resolver is required")
	}
	if cfg.Invoker == nil {
		return nil, errors.New("backend invoker is required")
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = provider.StandardProfile
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = provider.DefaultModelID
	}
	if cfg.StoreKind == "" {
		cfg.StoreKind = "session"
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	observability.EnsureRegistered()

	return &Dispatcher{
		personas:     cfg.Personas,
		invoker:      cfg.Invoker,
		sessions:     cfg.Sessions,
		projects:     cfg.Projects,
		blobs:        cfg.Blobs,
		profile:      cfg.Profile,
		defaultModel: cfg.DefaultModel,
		storeKind:    cfg.StoreKind,
		logger:       cfg.Logger.With().Str("component", "dispatcher").Logger(),
		onTransition: cfg.OnTransition,
		now:          cfg.now,
	}, nil
}

// run tracks one request through the state machine
type run struct {
	d      *Dispatcher
	ctx    context.Context
	state  State
	start  time.Time
	logger zerolog.Logger
}

func (d *Dispatcher) newRun(ctx context.Context) *run {
	return &run{
		d:      d,
		ctx:    ctx,
		state:  StateReceived,
		start:  d.now(),
		logger: tracing.LoggerFromContext(ctx, d.logger),
	}
}

func (r *run) advance(to State) {
	from := r.state
	r.state = to
	r.logger.Debug().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("State transition")
	if r.d.onTransition != nil {
		r.d.onTransition(r.ctx, from, to)
	}
}

// fail moves the run to Failed and records where it stopped
func (r *run) fail(err error) error {
	stoppedAt := r.state
	r.advance(StateFailed)
	observability.RecordDispatch(stoppedAt.String(), r.d.now().Sub(r.start), false)

	event := r.logger.Warn()
	if StatusFor(err) >= 500 {
		event = r.logger.Error()
	}
	event.Err(err).Str("state", stoppedAt.String()).Msg("Dispatch failed")
	return err
}

func (r *run) complete() {
	r.advance(StateCompleted)
	observability.RecordDispatch(StateCompleted.String(), r.d.now().Sub(r.start), true)
}

// prepared is a validated request with its persona resolved and its history
// normalized
type prepared struct {
	req         Request
	modelID     string
	mode        string
	instruction persona.Instruction
	messages    []conversation.Message
	input       []conversation.Message
	adapter     provider.Adapter
	profile     provider.Profile
}

// Handle runs a chat request to completion
func (d *Dispatcher) Handle(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "chatrelay.dispatch", "dispatch.handle",
		attribute.String("model_id", req.ModelID),
		attribute.String("mode", req.Mode),
		attribute.Int("messages", len(req.Messages)),
	)
	defer span.End()
	if req.SessionID != "" {
		ctx = tracing.WithSessionID(ctx, req.SessionID)
	}

	r := d.newRun(ctx)
	p, err := d.prepare(r, req)
	if err != nil {
		tracing.FailSpan(span, err)
		return nil, r.fail(err)
	}
	span.SetAttributes(attribute.String("family", p.adapter.Family().String()))

	if !p.adapter.Family().CanParse() {
		err := &provider.UnsupportedBackendError{BackendID: p.modelID}
		tracing.FailSpan(span, err)
		return nil, r.fail(err)
	}

	payload, err := p.adapter.BuildRequest(p.input, p.instruction.Text)
	if err != nil {
		err = buildError(err)
		tracing.FailSpan(span, err)
		return nil, r.fail(err)
	}

	parsed, err := d.invoke(ctx, p, payload)
	if err != nil {
		tracing.FailSpan(span, err)
		return nil, r.fail(err)
	}
	r.advance(StateBackendInvoked)

	if req.SessionID != "" && d.sessions != nil {
		d.persist(ctx, r, p, parsed.Text)
		r.advance(StatePersistAttempted)
	}

	r.complete()
	return &Result{
		Response: parsed.Text,
		ModelID:  p.modelID,
		Mode:     p.mode,
		Usage:    parsed.Usage,
		State:    StateCompleted,
	}, nil
}

// prepare runs Received -> Validated -> PersonaResolved -> Normalized
func (d *Dispatcher) prepare(r *run, req Request) (*prepared, error) {
	if req.Action != "" && req.Action != ActionChat {
		return nil, invalid("action", fmt.Errorf("%w: %s", ErrUnsupportedAction, req.Action))
	}
	if len(req.Messages) == 0 {
		return nil, invalid("messages", ErrNoMessages)
	}
	if err := conversation.Validate(req.Messages); err != nil {
		return nil, invalid("messages", err)
	}

	p := &prepared{req: req, modelID: req.ModelID}
	if p.modelID == "" {
		p.modelID = d.defaultModel
	}
	r.advance(StateValidated)

	inst, err := d.personas.Resolve(req.Mode)
	if err != nil {
		return nil, err
	}
	p.instruction = inst
	p.mode = req.Mode
	if p.mode == "" {
		p.mode = inst.Tag
	}
	r.advance(StatePersonaResolved)

	p.messages = conversation.Normalize(req.Messages)
	r.advance(StateNormalized)

	p.profile = d.profile
	if inst.TokenProfile != "" {
		profile, err := provider.ProfileByName(inst.TokenProfile)
		if err != nil {
			return nil, fmt.Errorf("persona %s: %w", inst.Tag, err)
		}
		p.profile = profile
	}
	p.adapter = provider.For(p.modelID, p.profile)
	p.input = p.messages
	if p.adapter.Family().RawLastTurn() {
		p.input = req.Messages
	}

	r.logger = r.logger.With().
		Str("model_id", p.modelID).
		Str("persona", inst.Tag).
		Str("family", p.adapter.Family().String()).
		Logger()
	return p, nil
}

// buildError classifies a BuildRequest failure. A history made only of
// system turns leaves Claude and Nova nothing to send.
func buildError(err error) error {
	if errors.Is(err, provider.ErrNoMessages) {
		return invalid("messages", err)
	}
	return fmt.Errorf("build backend request: %w", err)
}

func (d *Dispatcher) invoke(ctx context.Context, p *prepared, payload provider.Payload) (*provider.Result, error) {
	family := p.adapter.Family().String()
	ctx = tracing.WithBackendID(ctx, p.modelID)
	ctx, span := tracing.StartSpan(ctx, "chatrelay.dispatch", "backend.invoke",
		attribute.String("model_id", p.modelID),
		attribute.String("family", family),
		attribute.Int("payload_bytes", len(payload)),
	)
	defer span.End()

	start := time.Now()
	body, err := d.invoker.Invoke(ctx, p.modelID, payload)
	if err != nil {
		observability.RecordBackendInvocation(family, time.Since(start), false)
		tracing.FailSpan(span, err)
		return nil, &BackendInvocationError{BackendID: p.modelID, Err: err}
	}

	parsed, err := p.adapter.ParseResponse(body)
	if err != nil {
		observability.RecordBackendInvocation(family, time.Since(start), false)
		tracing.FailSpan(span, err)
		return nil, &BackendInvocationError{BackendID: p.modelID, Err: err}
	}

	observability.RecordBackendInvocation(family, time.Since(start), true)
	return parsed, nil
}

// persist writes the session record on a detached context so a request
// deadline reached after the reply does not drop it. Failures are logged and
// counted, never returned.
func (d *Dispatcher) persist(ctx context.Context, r *run, p *prepared, reply string) {
	rec := store.NewSessionRecord(p.req.SessionID, p.req.Messages, reply, p.instruction.Tag, p.modelID, d.now())
	if err := d.sessions.Put(tracing.Detach(ctx), rec); err != nil {
		observability.RecordPersistFailure(d.storeKind)
		r.logger.Error().
			Err(err).
			Str("session_id", p.req.SessionID).
			Msg("Failed to persist session")
		return
	}
	r.logger.Debug().
		Str("session_id", p.req.SessionID).
		Int("messages", len(rec.Messages)).
		Msg("Session persisted")
}

// Render runs a request up to BuildRequest without calling the backend. It
// works for every family, including the generic fallback.
func (d *Dispatcher) Render(ctx context.Context, req Request) (*Rendered, error) {
	r := d.newRun(ctx)
	p, err := d.prepare(r, req)
	if err != nil {
		return nil, err
	}

	payload, err := p.adapter.BuildRequest(p.input, p.instruction.Text)
	if err != nil {
		return nil, buildError(err)
	}

	return &Rendered{
		ModelID: p.modelID,
		Family:  p.adapter.Family().String(),
		Mode:    p.mode,
		Profile: p.profile.Name,
		Payload: []byte(payload),
	}, nil
}

// Dispatch routes req by its action. It returns a *Result for chat and a
// *ProjectResult for save_project.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch req.Action {
	case "", ActionChat:
		return d.Handle(ctx, req)
	case ActionSaveProject:
		return d.SaveProject(ctx, ProjectRequest{
			SessionID:   req.SessionID,
			ProjectData: req.ProjectData,
			RequestID:   tracing.GetRequestID(ctx),
		})
	case ActionGenerateDocuments:
		return nil, invalid("action", fmt.Errorf("%w: document generation is not available", ErrUnsupportedAction))
	default:
		return nil, invalid("action", fmt.Errorf("%w: %s", ErrUnsupportedAction, req.Action))
	}
}
