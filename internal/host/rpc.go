// Package host adapts the editor-side collaborators (result panel, output
// channels, notifications, commands and file opening) to the interfaces
// the view controller, the tool chain and the exporter consume.
package host

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tlaplus/tlabridge/internal/jsonrpc"
	"github.com/tlaplus/tlabridge/internal/process"
	"github.com/tlaplus/tlabridge/internal/viewsync"
)

// Notification methods sent to the editor.
const (
	MethodPanelCreate      = "panel/create"
	MethodPanelReveal      = "panel/reveal"
	MethodPanelPostMessage = "panel/postMessage"
	MethodOutputBind       = "output/bind"
	MethodOutputAppend     = "output/append"
	MethodOutputReveal     = "output/reveal"
	MethodShowMessage      = "window/showMessage"
	MethodExecuteCommand   = "commands/execute"
	MethodOpenFile         = "editor/openFile"
)

// Message severities for window/showMessage.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// RPC reaches the editor through JSON-RPC notifications.
type RPC struct {
	notifier jsonrpc.Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	nextPanel int
}

// NewRPC creates a host that writes notifications to n.
func NewRPC(n jsonrpc.Notifier, logger *slog.Logger) *RPC {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPC{notifier: n, logger: logger}
}

func (h *RPC) notify(method string, params any) error {
	if err := h.notifier.Notify(method, params); err != nil {
		return fmt.Errorf("sending %s: %w", method, err)
	}
	return nil
}

// CreatePanel asks the editor to open a result panel.
func (h *RPC) CreatePanel(title string) (viewsync.Panel, error) {
	h.mu.Lock()
	h.nextPanel++
	id := fmt.Sprintf("panel-%d", h.nextPanel)
	h.mu.Unlock()

	if err := h.notify(MethodPanelCreate, map[string]any{"panelId": id, "title": title}); err != nil {
		return nil, err
	}
	return &rpcPanel{host: h, id: id}, nil
}

type rpcPanel struct {
	host *RPC
	id   string
}

func (p *rpcPanel) Reveal() {
	if err := p.host.notify(MethodPanelReveal, map[string]any{"panelId": p.id}); err != nil {
		p.host.logger.Warn("failed to reveal panel", "panel", p.id, "error", err)
	}
}

func (p *rpcPanel) PostMessage(payload any) error {
	return p.host.notify(MethodPanelPostMessage, map[string]any{"panelId": p.id, "message": payload})
}

// Sink returns the output channel named kind.
func (h *RPC) Sink(kind string) process.Sink {
	return &rpcSink{host: h, channel: kind}
}

type rpcSink struct {
	host    *RPC
	channel string
}

func (s *rpcSink) Bind(commandLine string) {
	s.send(MethodOutputBind, map[string]any{"channel": s.channel, "commandLine": commandLine})
}

func (s *rpcSink) Append(chunk string) {
	s.send(MethodOutputAppend, map[string]any{"channel": s.channel, "text": chunk})
}

func (s *rpcSink) Reveal() {
	s.send(MethodOutputReveal, map[string]any{"channel": s.channel})
}

func (s *rpcSink) send(method string, params map[string]any) {
	if err := s.host.notify(method, params); err != nil {
		s.host.logger.Debug("dropped tool output", "channel", s.channel, "error", err)
	}
}

func (h *RPC) Info(msg string)  { h.showMessage(SeverityInfo, msg) }
func (h *RPC) Warn(msg string)  { h.showMessage(SeverityWarning, msg) }
func (h *RPC) Error(msg string) { h.showMessage(SeverityError, msg) }

func (h *RPC) showMessage(severity, msg string) {
	if err := h.notify(MethodShowMessage, map[string]any{"type": severity, "message": msg}); err != nil {
		h.logger.Warn("failed to show message", "message", msg, "error", err)
	}
}

// ExecuteCommand asks the editor to run one of its commands.
func (h *RPC) ExecuteCommand(name string) error {
	return h.notify(MethodExecuteCommand, map[string]any{"command": name})
}

// OpenFile asks the editor to open path with the cursor at line and
// character.
func (h *RPC) OpenFile(path string, column viewsync.ViewColumn, line, character int) error {
	return h.notify(MethodOpenFile, map[string]any{
		"path":       path,
		"viewColumn": int(column),
		"line":       line,
		"character":  character,
	})
}
