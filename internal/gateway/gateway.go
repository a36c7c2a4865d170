// Package gateway serializes browser automation commands from many
// concurrent callers onto a single engine-owning goroutine. The two
// bounded structures crossing that boundary are the command queue and
// the per-command result channels; the engine itself is never touched
// outside the owner loop.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/metrics"
)

// Config controls gateway behavior.
type Config struct {
	QueueDepth      int
	PollInterval    time.Duration
	DefaultDeadline time.Duration
	SubmitTimeout   time.Duration
	StartTimeout    time.Duration
	StartAttempts   int
	StartRetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = 64
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.DefaultDeadline <= 0 {
		c.DefaultDeadline = 10 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 5 * time.Second
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 30 * time.Second
	}
	if c.StartAttempts <= 0 {
		c.StartAttempts = 3
	}
	if c.StartRetryDelay <= 0 {
		c.StartRetryDelay = 2 * time.Second
	}
	return c
}

// HealthReport is the structural readiness breakdown served by /health.
type HealthReport struct {
	State  string       `json:"state"`
	Ready  bool         `json:"ready"`
	Detail EngineHealth `json:"detail"`
}

// Gateway owns the command queue, the waiter table and the single
// engine-owning goroutine. Construct once at process start and inject
// into the HTTP layer.
type Gateway struct {
	cfg     Config
	factory EngineFactory
	logger  *zap.Logger

	mu      sync.Mutex
	queue   *commandQueue
	waiters map[string]chan Result
	engine  Engine

	state     atomic.Int32
	running   atomic.Bool // processing flag observed by the owner loop
	loopAlive atomic.Bool
}

// New constructs a Gateway. The factory is invoked lazily by Start.
func New(cfg Config, factory EngineFactory, logger *zap.Logger) *Gateway {
	metrics.Init()
	g := &Gateway{
		cfg:     cfg.withDefaults(),
		factory: factory,
		logger:  logger,
		waiters: make(map[string]chan Result),
	}
	g.queue = newCommandQueue(g.cfg.QueueDepth)
	return g
}

// Start brings the owner loop up. Idempotent: a second call while the
// loop is alive reports success immediately. Stale queue entries and
// waiters from a previous lifecycle are discarded. Start only observes
// readiness; on timeout the loop keeps initializing in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.loopAlive.Load() {
		g.mu.Unlock()
		return nil
	}
	g.queue = newCommandQueue(g.cfg.QueueDepth)
	g.waiters = make(map[string]chan Result)
	g.setState(StateStarting)
	g.running.Store(true)
	g.loopAlive.Store(true)
	g.mu.Unlock()

	go g.run()

	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()
	deadline := time.Now().Add(g.cfg.StartTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("start canceled: %w", ctx.Err())
		case <-poll.C:
		}
		switch g.State() {
		case StateReady:
			return nil
		case StateUninitialized, StateStopped:
			return ErrStartupFailed
		}
	}
	return fmt.Errorf("%w: not ready within %s", ErrStartupFailed, g.cfg.StartTimeout)
}

// run initializes the engine with bounded retries, then processes
// commands until the running flag clears. This goroutine is the only
// execution context allowed to touch the engine.
func (g *Gateway) run() {
	defer g.loopAlive.Store(false)

	engine, err := g.initEngine()
	if err != nil {
		g.logger.Error("engine initialization failed", zap.Error(err))
		g.setState(StateUninitialized)
		g.running.Store(false)
		return
	}

	g.mu.Lock()
	g.engine = engine
	queue := g.queue
	g.mu.Unlock()
	g.setState(StateReady)
	g.logger.Info("owner loop ready")

	defer func() {
		// Unconditional close on exit; Close is idempotent so the
		// normal close-action path does not double-release.
		if cerr := engine.Close(); cerr != nil {
			g.logger.Warn("engine close on loop exit", zap.Error(cerr))
		}
		g.logger.Info("owner loop stopped", zap.String("state", g.State().String()))
	}()

	for g.running.Load() {
		// The short poll lets the loop observe a cleared running flag
		// for forced shutdown; only this loop reads from the queue.
		pollCtx, cancel := context.WithTimeout(context.Background(), g.cfg.PollInterval)
		cmd, err := queue.Dequeue(pollCtx)
		cancel()
		if err != nil {
			continue
		}

		g.deliver(g.dispatch(engine, cmd))

		if cmd.Action == ActionClose {
			g.running.Store(false)
			g.setState(StateStopped)
		}
	}
}

func (g *Gateway) initEngine() (Engine, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.StartAttempts; attempt++ {
		engine, err := g.factory()
		if err == nil {
			return engine, nil
		}
		lastErr = err
		g.logger.Warn("engine init attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.cfg.StartAttempts),
			zap.Error(err),
		)
		if attempt < g.cfg.StartAttempts {
			time.Sleep(g.cfg.StartRetryDelay)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrStartupFailed, lastErr)
}

// dispatch executes one command against the engine and always produces
// exactly one Result, converting every error and panic into a failed
// Result rather than letting it escape the loop.
func (g *Gateway) dispatch(engine Engine, cmd Command) (res Result) {
	metrics.IncInflight()
	start := time.Now()
	defer func() {
		metrics.DecInflight()
		if rec := recover(); rec != nil {
			res = failure(cmd.ID, fmt.Sprintf("panic executing %s: %v", cmd.Action, rec))
		}
		status := "success"
		if !res.Success {
			status = "error"
		}
		metrics.ObserveCommand(string(cmd.Action), status, time.Since(start))
	}()

	params := cmd.Params
	switch cmd.Action {
	case ActionNavigate:
		url := stringParam(params, "url")
		if url == "" {
			return failure(cmd.ID, "url is required")
		}
		if err := engine.Navigate(url); err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, map[string]any{"url": url})

	case ActionFindElement:
		found, err := engine.Find(stringParam(params, "selector"), selectorBy(params))
		if err != nil {
			return failure(cmd.ID, err.Error())
		}
		return Result{ID: cmd.ID, Success: found, Data: map[string]any{"found": found}}

	case ActionFindElements:
		selector := stringParam(params, "selector")
		by := selectorBy(params)
		count, err := engine.FindAll(selector, by)
		if err != nil {
			return failure(cmd.ID, err.Error())
		}
		if count == 0 {
			// Clean miss: not an execution error, the HTTP layer maps
			// this onto a structured 404.
			return Result{ID: cmd.ID, Success: false, Data: map[string]any{
				"status":  "not_found",
				"message": fmt.Sprintf("no elements found with selector %s", selector),
				"count":   0,
			}}
		}
		attribute := stringParam(params, "attribute")
		elements := make([]map[string]any, 0, count)
		for i := 0; i < count; i++ {
			if attribute != "" {
				value, err := engine.AttributeAt(selector, by, attribute, i)
				if err != nil {
					return failure(cmd.ID, err.Error())
				}
				elements = append(elements, map[string]any{"attribute_value": value})
				continue
			}
			text, err := engine.TextAt(selector, by, i)
			if err != nil {
				return failure(cmd.ID, err.Error())
			}
			elements = append(elements, map[string]any{"text": text})
		}
		return success(cmd.ID, map[string]any{
			"status":   "success",
			"elements": elements,
			"count":    count,
		})

	case ActionGetText:
		text, err := engine.Text(stringParam(params, "selector"), selectorBy(params))
		if err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, map[string]any{"text": text})

	case ActionGetElementText:
		text, err := engine.TextAt(stringParam(params, "selector"), selectorBy(params), intParam(params, "index", 0))
		if err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, map[string]any{"text": text})

	case ActionGetAttribute:
		name := stringParam(params, "attribute")
		if name == "" {
			return failure(cmd.ID, "attribute name is required")
		}
		value, err := engine.Attribute(stringParam(params, "selector"), selectorBy(params), name)
		if err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, map[string]any{"attribute_value": value})

	case ActionGetPageSource:
		content, err := engine.Source()
		if err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, map[string]any{"content": content})

	case ActionWaitForSelector:
		timeout := time.Duration(intParam(params, "timeout", 30000)) * time.Millisecond
		if err := engine.WaitFor(stringParam(params, "selector"), selectorBy(params), timeout); err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, nil)

	case ActionClick:
		if err := engine.Click(stringParam(params, "selector"), selectorBy(params)); err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, nil)

	case ActionTypeText:
		if err := engine.TypeText(stringParam(params, "selector"), selectorBy(params), stringParam(params, "text")); err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, nil)

	case ActionScroll:
		if err := engine.Scroll(intParam(params, "amount", 500)); err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, nil)

	case ActionClose:
		if err := engine.Close(); err != nil {
			return failure(cmd.ID, err.Error())
		}
		return success(cmd.ID, map[string]any{"message": "browser closed"})

	default:
		return failure(cmd.ID, fmt.Sprintf("unsupported action: %s", cmd.Action))
	}
}

// deliver hands a result to its registered waiter, or drops it when the
// waiter already gave up.
func (g *Gateway) deliver(res Result) {
	g.mu.Lock()
	ch, ok := g.waiters[res.ID]
	g.mu.Unlock()
	if !ok {
		metrics.ObserveDroppedResult()
		g.logger.Debug("dropping result with no waiter", zap.String("command_id", res.ID))
		return
	}
	select {
	case ch <- res:
	default:
	}
}

// Submit registers a waiter and enqueues one command, returning its
// fresh id. The caller must follow up with Await (or the result is
// dropped on delivery).
func (g *Gateway) Submit(ctx context.Context, action Action, params map[string]any) (string, error) {
	if !g.loopAlive.Load() {
		return "", ErrEngineUnavailable
	}

	id := uuid.NewString()
	ch := make(chan Result, 1)
	g.mu.Lock()
	g.waiters[id] = ch
	queue := g.queue
	g.mu.Unlock()

	enqueueCtx, cancel := context.WithTimeout(ctx, g.cfg.SubmitTimeout)
	defer cancel()
	if err := queue.Enqueue(enqueueCtx, Command{ID: id, Action: action, Params: params}); err != nil {
		g.removeWaiter(id)
		return "", fmt.Errorf("submit %s: %w", action, err)
	}
	return id, nil
}

// Await blocks until the result matching id arrives, the deadline
// elapses (ErrAwaitTimeout) or the context ends. The waiter is always
// deregistered on return; a late result is dropped by deliver.
func (g *Gateway) Await(ctx context.Context, id string, deadline time.Duration) (Result, error) {
	g.mu.Lock()
	ch, ok := g.waiters[id]
	g.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("no waiter registered for command %s", id)
	}
	defer g.removeWaiter(id)

	if deadline <= 0 {
		deadline = g.cfg.DefaultDeadline
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-timer.C:
		return Result{}, ErrAwaitTimeout
	case <-ctx.Done():
		return Result{}, fmt.Errorf("await canceled: %w", ctx.Err())
	}
}

// Execute is Submit followed by Await with the given deadline.
func (g *Gateway) Execute(ctx context.Context, action Action, params map[string]any, deadline time.Duration) (Result, error) {
	id, err := g.Submit(ctx, action, params)
	if err != nil {
		return Result{}, err
	}
	return g.Await(ctx, id, deadline)
}

func (g *Gateway) removeWaiter(id string) {
	g.mu.Lock()
	delete(g.waiters, id)
	g.mu.Unlock()
}

// State returns the current lifecycle state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

func (g *Gateway) setState(s State) {
	g.state.Store(int32(s))
}

// Running reports whether the owner loop is alive.
func (g *Gateway) Running() bool {
	return g.loopAlive.Load()
}

// Health reports the lifecycle state plus the engine's structural
// readiness breakdown. The breakdown only inspects session handles, so
// reading it off the owner loop is safe.
func (g *Gateway) Health() HealthReport {
	report := HealthReport{State: g.State().String()}

	g.mu.Lock()
	engine := g.engine
	g.mu.Unlock()
	if engine == nil {
		return report
	}

	report.Detail = engine.Health()
	report.Ready = g.State() == StateReady && report.Detail.Ready()
	return report
}

// Recycle closes the current engine and starts a fresh one. Called
// inline by endpoints that hit an engine-level failure; the current
// caller eats the restart latency, others queue behind it.
func (g *Gateway) Recycle(ctx context.Context) error {
	g.setState(StateDegraded)
	metrics.ObserveEngineRestart()
	g.logger.Warn("recycling browser engine")
	g.stopLoop()
	return g.Start(ctx)
}

// Close shuts the owner loop down via a close command. Idempotent:
// closing an already-stopped gateway reports success.
func (g *Gateway) Close(ctx context.Context) (Result, error) {
	if !g.loopAlive.Load() {
		g.setState(StateStopped)
		return success("", map[string]any{"message": "browser already closed"}), nil
	}

	res, err := g.Execute(ctx, ActionClose, nil, g.cfg.DefaultDeadline)
	if err != nil {
		if errors.Is(err, ErrAwaitTimeout) || errors.Is(err, ErrEngineUnavailable) {
			// Engine is stuck or gone: force the loop down.
			g.stopLoop()
			g.setState(StateStopped)
			return success("", map[string]any{"message": "browser close forced"}), nil
		}
		return Result{}, err
	}
	return res, nil
}

// stopLoop clears the running flag and waits for the owner loop to
// observe it, bounded by the poll interval plus a grace period.
func (g *Gateway) stopLoop() {
	g.running.Store(false)
	deadline := time.Now().Add(g.cfg.PollInterval + 5*time.Second)
	for g.loopAlive.Load() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
}
