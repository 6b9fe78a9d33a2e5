package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamsync/internal/logging"
	"teamsync/internal/schedule"
	"teamsync/internal/timeline"
	"teamsync/internal/types"
)

const DefaultPollInterval = 5 * time.Second

const (
	msgStartFailed    = "Failed to start the session"
	msgContinueFailed = "Failed to send the message"
	msgRespondFailed  = "Failed to send the response"
	msgStopFailed     = "Failed to stop the session"
	msgAttachFailed   = "Failed to load the session"
	msgPollFailed     = "Lost contact with the session service; retrying"
)

var ErrEmptyMessage = errors.New("message is required")

type Option func(*Controller)

func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(c *Controller) {
		c.recorder = recorder
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns one remote team session: its lifecycle state, the poll
// loop and the reconciled timeline. The mutex is never held across a
// gateway call. Every terminal transition bumps epoch, and a tick that
// started under an older epoch drops its results.
type Controller struct {
	gateway  Gateway
	teamID   string
	interval time.Duration
	logger   logging.Logger
	recorder Recorder
	now      func() time.Time
	loop     *schedule.Schedule

	mu         sync.Mutex
	state      State
	sessionID  string
	starting   bool
	stopAsked  bool
	busy       int
	epoch      uint64
	loopCtx    context.Context
	loopCancel context.CancelFunc
	store      *timeline.Store
	tasks      []types.Task
	pending    *types.Inquiry
	snapshot   *types.Session
	result     *timeline.FinalResult
	lastErr    *Error
	closed     bool
	subs       map[int]chan View
	nextSub    int
}

// NewController builds an idle controller. The poll interval is read once;
// non-positive values fall back to DefaultPollInterval.
func NewController(gateway Gateway, teamID string, interval time.Duration, opts ...Option) *Controller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	c := &Controller{
		gateway:  gateway,
		teamID:   strings.TrimSpace(teamID),
		interval: interval,
		logger:   logging.Nop(),
		now:      time.Now,
		state:    StateIdle,
		store:    timeline.NewStore(),
		subs:     map[int]chan View{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.loop = schedule.New(c.Poll)
	return c
}

// Start creates a remote session with the opening message and arms the poll
// loop. It returns once the session id is known.
func (c *Controller) Start(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	if err := c.bindableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.starting = true
	c.busy++
	c.state = StateStarting
	c.lastErr = nil
	teamID := c.teamID
	c.publishLocked()
	c.mu.Unlock()

	sessionID, err := c.gateway.CreateSession(ctx, teamID, message)
	if err == nil && strings.TrimSpace(sessionID) == "" {
		err = errors.New("service returned an empty session id")
	}

	c.mu.Lock()
	c.starting = false
	c.busy--
	stopAsked := c.stopAsked
	c.stopAsked = false
	if err != nil {
		c.state = StateIdle
		c.lastErr = transportError(msgStartFailed, err)
		opErr := c.lastErr
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Warn("session_start_failed", logging.F("team_id", teamID), logging.F("error", err))
		return opErr
	}
	if c.closed {
		c.state = StateIdle
		c.publishLocked()
		c.mu.Unlock()
		return inactiveError("controller is closed")
	}
	c.sessionID = sessionID
	c.appendUserEntryLocked(message)
	if stopAsked {
		c.finishLocked(StateStopped)
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Info("session_started", logging.F("session_id", sessionID), logging.F("team_id", teamID))
		c.recordStarted(ctx, sessionID, message, false)
		c.stopRequested(ctx, sessionID)
		return nil
	}
	c.state = StatePolling
	loopCtx := c.ensureLoopLocked()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("session_started", logging.F("session_id", sessionID), logging.F("team_id", teamID))
	c.recordStarted(ctx, sessionID, message, false)
	c.arm(loopCtx)
	return nil
}

// Attach binds the controller to an existing remote session and polls it
// immediately.
func (c *Controller) Attach(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return inactiveError("session id is required")
	}
	c.mu.Lock()
	if err := c.bindableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.starting = true
	c.busy++
	c.state = StateStarting
	c.lastErr = nil
	c.publishLocked()
	c.mu.Unlock()

	snapshot, err := c.gateway.GetSession(ctx, sessionID)

	c.mu.Lock()
	c.starting = false
	c.busy--
	stopAsked := c.stopAsked
	c.stopAsked = false
	if err != nil {
		c.state = StateIdle
		c.lastErr = transportError(msgAttachFailed, err)
		opErr := c.lastErr
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Warn("session_attach_failed", logging.F("session_id", sessionID), logging.F("error", err))
		return opErr
	}
	if c.closed {
		c.state = StateIdle
		c.publishLocked()
		c.mu.Unlock()
		return inactiveError("controller is closed")
	}
	c.sessionID = sessionID
	if c.teamID == "" && snapshot != nil {
		c.teamID = strings.TrimSpace(snapshot.TeamID)
	}
	prompt := ""
	if snapshot != nil {
		prompt = snapshot.Meta.Name
	}
	if stopAsked {
		c.finishLocked(StateStopped)
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Info("session_attached", logging.F("session_id", sessionID))
		c.recordStarted(ctx, sessionID, prompt, true)
		c.stopRequested(ctx, sessionID)
		return nil
	}
	c.state = StatePolling
	loopCtx := c.ensureLoopLocked()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("session_attached", logging.F("session_id", sessionID))
	c.recordStarted(ctx, sessionID, prompt, true)
	c.arm(loopCtx)
	_ = c.loop.RunNow(loopCtx)
	return nil
}

// ContinueWith sends a follow-up message to the running session and polls
// right away.
func (c *Controller) ContinueWith(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	if c.sessionID == "" || !c.state.Active() {
		c.mu.Unlock()
		return inactiveError("no active session")
	}
	sessionID := c.sessionID
	teamID := c.teamID
	localID := c.appendUserEntryLocked(message)
	c.busy++
	c.publishLocked()
	c.mu.Unlock()

	err := c.gateway.ContinueSession(ctx, teamID, sessionID, message)

	c.mu.Lock()
	c.busy--
	if err != nil {
		if localID != "" {
			c.store.Remove(localID)
		}
		c.lastErr = transportError(msgContinueFailed, err)
		opErr := c.lastErr
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Warn("session_continue_failed", logging.F("session_id", sessionID), logging.F("error", err))
		return opErr
	}
	if !c.state.Active() {
		c.publishLocked()
		c.mu.Unlock()
		return nil
	}
	loopCtx := c.ensureLoopLocked()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("session_continued", logging.F("session_id", sessionID))
	c.arm(loopCtx)
	_ = c.loop.RunNow(loopCtx)
	return nil
}

// RespondToInquiry answers the pending inquiry with the given id.
func (c *Controller) RespondToInquiry(ctx context.Context, inquiryID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	if c.pending == nil || c.pending.ID != inquiryID {
		c.mu.Unlock()
		return inquiryNotFoundError(inquiryID)
	}
	sessionID := c.sessionID
	c.busy++
	c.publishLocked()
	c.mu.Unlock()

	err := c.gateway.RespondToInquiry(ctx, inquiryID, message)

	c.mu.Lock()
	c.busy--
	if err != nil {
		c.lastErr = transportError(msgRespondFailed, err)
		opErr := c.lastErr
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Warn("inquiry_response_failed",
			logging.F("session_id", sessionID),
			logging.F("inquiry_id", inquiryID),
			logging.F("error", err),
		)
		return opErr
	}
	if !c.state.Active() {
		c.publishLocked()
		c.mu.Unlock()
		return nil
	}
	c.pending = nil
	c.state = StatePolling
	c.appendUserEntryLocked(message)
	loopCtx := c.ensureLoopLocked()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("inquiry_answered", logging.F("session_id", sessionID), logging.F("inquiry_id", inquiryID))
	c.arm(loopCtx)
	_ = c.loop.RunNow(loopCtx)
	return nil
}

// Stop halts local polling, then asks the service to stop the session. The
// remote outcome is returned but does not affect local state. During Start
// or Attach the request is held and applied once the session id is known;
// the loop is never armed in that case.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.sessionID == "" && c.starting {
		c.stopAsked = true
		c.mu.Unlock()
		c.logger.Info("session_stop_deferred")
		return nil
	}
	if c.sessionID == "" {
		c.mu.Unlock()
		return inactiveError("no active session")
	}
	if c.state.Terminal() {
		c.mu.Unlock()
		return nil
	}
	sessionID := c.sessionID
	c.finishLocked(StateStopped)
	c.publishLocked()
	c.mu.Unlock()

	c.loop.Disarm()
	c.logger.Info("session_stopped", logging.F("session_id", sessionID))
	c.recordOutcome(sessionID, types.RunStatusStopped, "", "")

	if err := c.gateway.StopSession(ctx, sessionID); err != nil {
		c.logger.Warn("session_remote_stop_failed", logging.F("session_id", sessionID), logging.F("error", err))
		return transportError(msgStopFailed, err)
	}
	return nil
}

// Poll runs one tick: snapshot, transition and inquiry narration, message
// log, merge, terminal evaluation. A failed fetch leaves the timeline and
// roster untouched and the loop armed.
func (c *Controller) Poll(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.closed || c.sessionID == "" || !c.state.Active() {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	sessionID := c.sessionID
	previous := types.CloneTasks(c.tasks)
	c.mu.Unlock()

	logger := c.logger.With(logging.F("session_id", sessionID), logging.F("tick_id", logging.NewRequestID()))
	snapshot, err := c.gateway.GetSession(ctx, sessionID)
	if err != nil {
		c.tickFailed(logger, epoch, "session", err)
		return
	}
	if snapshot == nil {
		c.tickFailed(logger, epoch, "session", errors.New("empty session snapshot"))
		return
	}
	status := snapshot.EffectiveStatus()
	at := c.now().UTC()
	synthetic := timeline.DetectTransitions(previous, snapshot.Backlog, at)

	var resolution timeline.Resolution
	if status == types.RunStatusAwaitingToolResult {
		inquiries, err := c.gateway.GetInquiries(ctx, sessionID)
		if err != nil {
			c.tickFailed(logger, epoch, "inquiries", err)
			return
		}
		resolution = timeline.ResolveInquiry(snapshot, inquiries, at)
		synthetic = append(synthetic, resolution.Entries...)
	}

	records, err := c.gateway.GetMessages(ctx, sessionID)
	if err != nil {
		c.tickFailed(logger, epoch, "messages", err)
		return
	}
	remote := timeline.ToEntries(sessionID, records)

	var final *timeline.FinalResult
	if status == types.RunStatusComplete {
		if result, ok := timeline.ExtractResult(snapshot, records, at); ok {
			final = &result
		}
	}

	c.mu.Lock()
	if epoch != c.epoch || c.closed {
		c.mu.Unlock()
		logger.Debug("poll_tick_discarded")
		return
	}
	newInquiry := resolution.Pending != nil && !c.store.Narrated(timeline.InquiryNarrationKey(resolution.Pending.ID))
	added := c.store.Merge(remote, synthetic)
	c.tasks = types.CloneTasks(snapshot.Backlog)
	c.snapshot = types.CloneSession(snapshot)
	if c.lastErr != nil && c.lastErr.Kind == ErrorTransport {
		c.lastErr = nil
	}

	terminal := StateIdle
	switch status {
	case types.RunStatusComplete:
		if final != nil {
			c.store.Merge(nil, []types.TimelineEntry{timeline.FinalEntry(sessionID, *final)})
			c.result = final
		}
		terminal = StateCompleted
	case types.RunStatusError:
		c.lastErr = remoteSessionError(strings.TrimSpace(snapshot.StopReason))
		terminal = StateErrored
	case types.RunStatusStopped:
		terminal = StateStopped
	case types.RunStatusAwaitingToolResult:
		if resolution.Pending != nil {
			c.pending = resolution.Pending
			c.state = StateAwaitingUserInput
		} else {
			c.pending = nil
			c.state = StatePolling
		}
	default:
		c.pending = nil
		c.state = StatePolling
	}
	if terminal != StateIdle {
		c.finishLocked(terminal)
	}
	state := c.state
	c.publishLocked()
	c.mu.Unlock()

	logger.Debug("poll_tick",
		logging.F("status", status),
		logging.F("entries_added", added),
	)
	if newInquiry {
		logger.Info("inquiry_pending", logging.F("inquiry_id", resolution.Pending.ID))
	}
	if terminal == StateIdle {
		return
	}
	c.loop.Disarm()
	resultText := ""
	if final != nil {
		resultText = final.Specification
	}
	logger.Info("session_finished",
		logging.F("state", state),
		logging.F("stop_reason", snapshot.StopReason),
		logging.F("ticks", c.loop.Runs()),
		logging.F("ticks_skipped", c.loop.Skipped()),
	)
	c.recordOutcome(sessionID, status, resultText, snapshot.StopReason)
}

// View returns a copy of the current state for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a channel that receives a View after every change. The
// channel holds only the latest value; a slow reader skips intermediate
// ones. The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	c.mu.Lock()
	if c.closed {
		ch <- c.viewLocked()
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.viewLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close disarms the poll loop and closes all subscriptions. It does not stop
// the remote session.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	if c.loopCancel != nil {
		c.loopCancel()
		c.loopCancel = nil
		c.loopCtx = nil
	}
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
	c.mu.Unlock()
	c.loop.Disarm()
	c.loop.Wait()
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) bindableLocked() error {
	if c.closed {
		return inactiveError("controller is closed")
	}
	if c.sessionID != "" {
		return startConflictError("a session is already active")
	}
	if c.starting {
		return startConflictError("a session start is already in progress")
	}
	return nil
}

// appendUserEntryLocked adds an optimistic user entry and returns its id, or
// "" when an identical entry is already on the timeline.
func (c *Controller) appendUserEntryLocked(message string) string {
	entry := types.TimelineEntry{
		ID:        "local-" + uuid.NewString(),
		Sender:    types.SenderUser,
		Content:   message,
		Kind:      types.EntryKindMessage,
		CreatedAt: c.now().UTC(),
	}
	if c.store.Contains(entry.DedupKey()) {
		return ""
	}
	c.store.Append(entry)
	return entry.ID
}

func (c *Controller) ensureLoopLocked() context.Context {
	if c.loopCtx == nil {
		c.loopCtx, c.loopCancel = context.WithCancel(context.Background())
	}
	return c.loopCtx
}

func (c *Controller) finishLocked(state State) {
	c.state = state
	c.pending = nil
	c.epoch++
	if c.loopCancel != nil {
		c.loopCancel()
		c.loopCancel = nil
		c.loopCtx = nil
	}
}

func (c *Controller) arm(ctx context.Context) {
	if err := c.loop.Arm(ctx, c.interval); err != nil {
		c.logger.Error("poll_loop_arm_failed", logging.F("error", err))
	}
}

func (c *Controller) tickFailed(logger logging.Logger, epoch uint64, stage string, err error) {
	c.mu.Lock()
	if epoch != c.epoch || c.closed {
		c.mu.Unlock()
		return
	}
	c.lastErr = transportError(msgPollFailed, err)
	c.publishLocked()
	c.mu.Unlock()
	logger.Warn("poll_tick_failed", logging.F("stage", stage), logging.F("error", err))
}

// stopRequested finishes a Stop that arrived while the session id was still
// unknown.
func (c *Controller) stopRequested(ctx context.Context, sessionID string) {
	c.logger.Info("session_stopped", logging.F("session_id", sessionID))
	c.recordOutcome(sessionID, types.RunStatusStopped, "", "")
	if err := c.gateway.StopSession(context.WithoutCancel(ctx), sessionID); err != nil {
		c.logger.Warn("session_remote_stop_failed", logging.F("session_id", sessionID), logging.F("error", err))
	}
}

func (c *Controller) viewLocked() View {
	view := View{
		State:          c.state,
		SessionID:      c.sessionID,
		Entries:        c.store.Entries(),
		Tasks:          types.CloneTasks(c.tasks),
		PendingInquiry: types.CloneInquiry(c.pending),
		Loading:        c.busy > 0,
		Session:        types.CloneSession(c.snapshot),
		PollEvery:      c.loop.Interval(),
	}
	if c.lastErr != nil {
		view.LastError = c.lastErr.UserMessage()
	}
	if c.result != nil {
		result := *c.result
		view.Result = &result
	}
	return view
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	view := c.viewLocked()
	for _, sub := range c.subs {
		select {
		case sub <- view:
			continue
		default:
		}
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- view:
		default:
		}
	}
}

func (c *Controller) recordStarted(ctx context.Context, sessionID, prompt string, attached bool) {
	if c.recorder == nil {
		return
	}
	now := c.now().UTC()
	record := &types.SessionRecord{
		SessionID: sessionID,
		TeamID:    c.teamID,
		Prompt:    prompt,
		Status:    types.RunStatusCreated,
		Attached:  attached,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.recorder.RecordStarted(context.WithoutCancel(ctx), record); err != nil {
		c.logger.Warn("session_index_record_failed", logging.F("session_id", sessionID), logging.F("error", err))
	}
}

func (c *Controller) recordOutcome(sessionID string, status types.RunStatus, result, stopReason string) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordOutcome(context.Background(), sessionID, status, result, stopReason); err != nil {
		c.logger.Warn("session_index_update_failed", logging.F("session_id", sessionID), logging.F("error", err))
	}
}
