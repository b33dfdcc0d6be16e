// Package viewsync keeps the detached result panel in step with the latest
// model-check result.
//
// Producers call Submit whenever a new result is available and never need to
// know whether the panel exists or is visible. While the panel is hidden only
// the most recent result is retained; it is replayed exactly once when the
// panel becomes visible again.
package viewsync

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/tlaplus/tlabridge/internal/checkresult"
)

// DefaultTitle is the title used for the result panel when none is configured.
const DefaultTitle = "TLA+ model checking"

// StopCommand is the host command executed when the panel asks to stop.
const StopCommand = "tlaplus.model.check.stop"

// PushMessage is the payload posted to the panel.
type PushMessage struct {
	CheckResult checkresult.Result `json:"checkResult"`
}

// Options configures a Controller.
type Options struct {
	Title    string
	Commands CommandExecutor
	Files    FileOpener
	Logger   *slog.Logger
}

// Controller is the single writer of the view synchronization state. All
// methods are safe for concurrent use; state transitions are serialized.
type Controller struct {
	mu sync.Mutex

	host     Host
	title    string
	commands CommandExecutor
	files    FileOpener
	logger   *slog.Logger

	panel   Panel
	column  ViewColumn
	last    checkresult.Result
	hasLast bool
	visible bool
	unseen  bool
	pushes  int
}

// NewController creates a controller that creates panels through host.
func NewController(host Host, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	return &Controller{
		host:     host,
		title:    opts.Title,
		commands: opts.Commands,
		files:    opts.Files,
		logger:   opts.Logger,
	}
}

// Submit records result as the latest one and pushes it if the panel is
// visible. It never fails.
func (c *Controller) Submit(result checkresult.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitLocked(result.Clone())
}

func (c *Controller) submitLocked(result checkresult.Result) {
	c.last = result
	c.hasLast = true
	if c.panel != nil && c.visible {
		c.pushLocked()
		return
	}
	c.unseen = true
	c.logger.Debug("result deferred", "state", c.stateLocked(), "result_state", result.State)
}

func (c *Controller) pushLocked() {
	c.unseen = false
	c.pushes++
	if err := c.panel.PostMessage(PushMessage{CheckResult: c.last}); err != nil {
		// Keep the result pending so the next transition to visible replays it.
		c.unseen = true
		c.logger.Warn("failed to push check result", "error", err)
	}
}

// NotifyVisibilityChanged records the panel's visibility. A transition from
// hidden to visible replays the pending result, if any. column is the
// panel's current editor column, or ColumnNone if unknown.
func (c *Controller) NotifyVisibilityChanged(visible bool, column ViewColumn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.panel == nil {
		c.logger.Debug("visibility change without a panel ignored", "visible", visible)
		return
	}
	if column != ColumnNone {
		c.column = column
	}
	wasVisible := c.visible
	c.visible = visible
	if visible && !wasVisible && c.unseen && c.hasLast {
		c.logger.Debug("replaying result missed while hidden")
		c.pushLocked()
	}
}

// NotifyDisposed forgets the panel. A pending result survives and is shown
// the next time the panel is revealed.
func (c *Controller) NotifyDisposed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panel = nil
	c.visible = false
	c.column = ColumnNone
}

// RevealWithResult makes sure the panel exists and is in front, then
// submits result.
func (c *Controller) RevealWithResult(result checkresult.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revealLocked()
	c.submitLocked(result.Clone())
}

// RevealEmpty reveals the panel with the "no run yet" result for source.
func (c *Controller) RevealEmpty(source checkresult.Source) {
	c.RevealWithResult(checkresult.Empty(source))
}

// RevealWithLastResult reveals the panel with the last submitted result. It
// does nothing if no result was ever submitted.
func (c *Controller) RevealWithLastResult() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLast {
		return
	}
	c.revealLocked()
	c.submitLocked(c.last)
}

func (c *Controller) revealLocked() {
	if c.panel != nil {
		c.panel.Reveal()
		c.visible = true
		return
	}
	panel, err := c.host.CreatePanel(c.title)
	if err != nil {
		c.logger.Warn("failed to create result panel", "error", err)
		return
	}
	c.panel = panel
	c.visible = true
}

// State returns the current state of the view state machine.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return stateOf(c.panel != nil, c.visible, c.unseen)
}

// Snapshot returns a copy of the controller's bookkeeping.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:           c.stateLocked(),
		HasResult:       c.hasLast,
		Visible:         c.visible,
		HasUnseenUpdate: c.unseen,
		Column:          c.column,
		Pushes:          c.pushes,
	}
}

// LastResult returns the last submitted result and whether there is one.
func (c *Controller) LastResult() (checkresult.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.Clone(), c.hasLast
}

// Message is a message sent by the panel.
type Message struct {
	Command   string `json:"command"`
	FilePath  string `json:"filePath,omitempty"`
	Line      int    `json:"line,omitempty"`
	Character int    `json:"character,omitempty"`
}

// HandleMessage routes a panel message. Unknown commands are ignored.
func (c *Controller) HandleMessage(msg Message) {
	switch msg.Command {
	case "stop":
		if c.commands == nil {
			return
		}
		if err := c.commands.ExecuteCommand(StopCommand); err != nil {
			c.logger.Warn("failed to forward stop request", "error", err)
		}
	case "openFile":
		if c.files == nil || msg.FilePath == "" {
			return
		}
		column := c.columnFor(msg.FilePath)
		if err := c.files.OpenFile(msg.FilePath, column, msg.Line, msg.Character); err != nil {
			c.logger.Warn("failed to open file", "path", msg.FilePath, "error", err)
		}
	default:
		c.logger.Debug("ignoring unknown panel message", "command", msg.Command)
	}
}

// columnFor picks where a file requested by the panel should open. Model
// checker output files go next to the panel so that repeated clicks reuse
// one editor; everything else opens in the first column.
func (c *Controller) columnFor(path string) ViewColumn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.HasSuffix(path, ".out") && c.panel != nil {
		if c.column != ColumnNone {
			return c.column
		}
		return ColumnActive
	}
	return ColumnOne
}
