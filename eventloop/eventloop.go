package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tray-translate-llm/config"
	"tray-translate-llm/hotkey"
	"tray-translate-llm/notification"
	"tray-translate-llm/selector"
	"tray-translate-llm/session"
	"tray-translate-llm/singleinstance"
	"tray-translate-llm/tray"
	"tray-translate-llm/worker"
)

// Notifier is the user-facing surface for cycle outcomes. The default
// implementation uses desktop notifications.
type Notifier interface {
	Result(text string)
	Error(msg string)
	Busy()
}

type desktopNotifier struct{}

func (desktopNotifier) Result(text string) { notification.ShowResult(text) }
func (desktopNotifier) Error(msg string)   { notification.ShowError(msg) }
func (desktopNotifier) Busy()              { notification.ShowBusy() }

// Loop is the single-threaded coordinator for hotkey, tray, and delegated
// run-once flows. All state below is touched only from the Run goroutine.
type Loop struct {
	selector       selector.Selector
	pool           *worker.Pool
	srv            singleinstance.Server
	busy           bool
	results        chan result
	triggerCh      chan struct{}
	defaultTooltip string
	deadline       time.Duration
	notify         Notifier
	deliver        func(text string) error
	status         func(tooltip string)
	ready          chan struct{}
}

type result struct {
	text   string
	err    error
	target resultTarget
	cancel context.CancelFunc
}

type resultTarget interface {
	OnSuccess(text string) error
	OnProcessError(err error)
	OnDeliveryError(err error)
	Close()
}

// triggerResultTarget delivers hotkey/tray results: clipboard + notification.
type triggerResultTarget struct {
	loop *Loop
}

func (t triggerResultTarget) OnSuccess(text string) error {
	if err := t.loop.deliver(text); err != nil {
		return err
	}
	t.loop.notify.Result(text)
	return nil
}

func (t triggerResultTarget) OnProcessError(err error) {
	t.loop.notify.Error(err.Error())
}

func (t triggerResultTarget) OnDeliveryError(err error) {
	t.loop.notify.Error(fmt.Sprintf("Could not deliver result: %v", err))
}

func (triggerResultTarget) Close() {}

// delegatedResultTarget answers a run-once client over its TCP connection.
type delegatedResultTarget struct {
	sink session.DelegatedTarget
	conn singleinstance.Conn
}

func newDelegatedResultTarget(conn singleinstance.Conn, outputToStdout bool) delegatedResultTarget {
	return delegatedResultTarget{
		sink: session.DelegatedTarget{Conn: conn, OutputToStdout: outputToStdout},
		conn: conn,
	}
}

func (t delegatedResultTarget) OnSuccess(text string) error {
	return t.sink.OnSuccess(text)
}

func (t delegatedResultTarget) OnProcessError(err error) {
	_ = t.sink.OnFailure(err)
}

func (t delegatedResultTarget) OnDeliveryError(err error) {
	_ = t.sink.OnFailure(err)
}

func (t delegatedResultTarget) Close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

type requestCallbacks struct {
	onBusy        func()
	onSelectError func(err error)
	onCancelled   func()
}

// New creates the event loop. If cfg is nil or its deadline is unset, 60s is
// used. The translate function runs on the worker pool.
func New(cfg *config.Config, sel selector.Selector, translate worker.TranslateFunc) *Loop {
	deadlineSec := config.DefaultDeadline
	if cfg != nil && cfg.TranslateDeadlineSec > 0 {
		deadlineSec = cfg.TranslateDeadlineSec
	}
	if sel == nil {
		sel = selector.New(cfg)
	}

	l := &Loop{
		selector:       sel,
		pool:           worker.New(1, translate),
		results:        make(chan result, 1),
		triggerCh:      make(chan struct{}, 4),
		defaultTooltip: "Tray Translate",
		deadline:       time.Duration(deadlineSec) * time.Second,
		notify:         desktopNotifier{},
		status:         tray.UpdateTooltip,
		ready:          make(chan struct{}),
	}
	l.deliver = session.ClipboardTarget{}.OnSuccess
	return l
}

// SetDefaultTooltip sets the tray tooltip base text.
func (l *Loop) SetDefaultTooltip(tt string) { l.defaultTooltip = tt }

// SetNotifier overrides the user-facing notifier (tests).
func (l *Loop) SetNotifier(n Notifier) { l.notify = n }

// SetDeliverFunc overrides result delivery for the trigger flow (tests).
func (l *Loop) SetDeliverFunc(f func(string) error) { l.deliver = f }

// SetStatusFunc overrides the tray tooltip updater (tests).
func (l *Loop) SetStatusFunc(f func(string)) { l.status = f }

// Deadline returns the per-cycle translate deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }

// Ready is closed once Run has bound the resident endpoint.
func (l *Loop) Ready() <-chan struct{} { return l.ready }

// StartHotkey registers the global hotkey; each full press posts one capture
// trigger into the loop.
func (l *Loop) StartHotkey(combo string) {
	hotkey.Listen(combo, l.TriggerCapture)
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if b {
		l.status("Tray Translate: processing...")
	} else {
		l.status(l.defaultTooltip)
	}
}

// TriggerCapture posts a capture request into the loop. Safe to call from any
// goroutine (hotkey hook, tray menu). Drops silently when the trigger queue
// is full; the busy policy handles the rest.
func (l *Loop) TriggerCapture() {
	select {
	case l.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the singleinstance server and processes triggers, delegated
// requests, and worker results. It blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.srv = singleinstance.NewServer()
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	defer l.srv.Close()
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
		tray.SetAboutExtra(fmt.Sprintf("Resident TCP port: %d", p))
	}
	defer l.pool.Close()
	close(l.ready)

	// Accept loop in background to avoid blocking result handling.
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			reqCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggerCh:
			l.handleTrigger(ctx)
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context) {
	l.startRequest(ctx, triggerResultTarget{loop: l}, requestCallbacks{
		onBusy: func() {
			log.Printf("handleTrigger: busy, dropping")
			l.notify.Busy()
		},
		onSelectError: func(err error) {
			log.Printf("handleTrigger: selection error: %v", err)
			l.notify.Error(fmt.Sprintf("Failed to select region: %v", err))
		},
		onCancelled: func() {
			log.Printf("handleTrigger: selection cancelled")
		},
	})
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := newDelegatedResultTarget(conn, conn.Request().OutputToStdout)
	l.startRequest(ctx, target, requestCallbacks{
		onBusy: func() {
			target.OnProcessError(errors.New("Busy, please retry"))
			target.Close()
		},
		onSelectError: func(err error) {
			target.OnProcessError(fmt.Errorf("Failed to select region: %w", err))
			target.Close()
		},
		onCancelled: func() {
			target.OnProcessError(session.ErrSelectionCancelled)
			target.Close()
		},
	})
}

func (l *Loop) handleResult(res result) {
	log.Printf("handleResult: text length=%d, err=%v", len(res.text), res.err)
	defer func() {
		l.setBusy(false)
		if res.cancel != nil {
			res.cancel()
		}
	}()
	if res.target == nil {
		log.Printf("handleResult: missing target")
		return
	}
	defer res.target.Close()

	if res.err != nil {
		res.target.OnProcessError(res.err)
		return
	}

	if err := res.target.OnSuccess(res.text); err != nil {
		log.Printf("handleResult: delivery error: %v", err)
		res.target.OnDeliveryError(err)
		return
	}
}

func (l *Loop) startRequest(ctx context.Context, target resultTarget, callbacks requestCallbacks) {
	if l.busy {
		if callbacks.onBusy != nil {
			callbacks.onBusy()
		}
		return
	}

	region, cancelled, err := l.selector.Select(ctx)
	if err != nil {
		if callbacks.onSelectError != nil {
			callbacks.onSelectError(err)
		}
		return
	}
	if cancelled {
		if callbacks.onCancelled != nil {
			callbacks.onCancelled()
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)

	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, region, func(text string, err error) {
		l.results <- result{text: text, err: err, target: target, cancel: cancel}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		if callbacks.onBusy != nil {
			callbacks.onBusy()
		}
	}
}
