package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tlaplus/tlabridge/internal/checkresult"
	"github.com/tlaplus/tlabridge/internal/export"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"github.com/tlaplus/tlabridge/internal/viewsync"
)

// Run statuses reported by run.status.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunRejected  = "rejected"
)

// NotificationExportFinished is sent when a background export ends.
const NotificationExportFinished = "export/finished"

// RunState tracks the status of an export run.
type RunState struct {
	ID         string `json:"id"`
	Format     string `json:"format"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	ExitStatus *int   `json:"exit_status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Notifier sends server-initiated notifications to the client.
type Notifier interface {
	Notify(method string, params any) error
}

// HandlerOptions wires the handlers to the components they drive.
type HandlerOptions struct {
	View     *viewsync.Controller
	Exporter *export.Exporter
	Config   *projectconfig.Store
	Notifier Notifier
	Logger   *slog.Logger
}

// HandlerContext provides shared state for method handlers of one session.
type HandlerContext struct {
	ctx      context.Context
	view     *viewsync.Controller
	exporter *export.Exporter
	config   *projectconfig.Store
	notifier Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	runs      map[string]*RunState
	nextRunID int

	// exportMu serializes export runs within the session.
	exportMu sync.Mutex
	wg       sync.WaitGroup
}

// NewHandlerContext creates a new handler context. Background export runs
// are bound to ctx.
func NewHandlerContext(ctx context.Context, opts HandlerOptions) *HandlerContext {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HandlerContext{
		ctx:      ctx,
		view:     opts.View,
		exporter: opts.Exporter,
		config:   opts.Config,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		runs:     make(map[string]*RunState),
	}
}

// RegisterHandlers registers all view/export/run/config method handlers.
func RegisterHandlers(registry *MethodRegistry, hctx *HandlerContext) {
	registry.Register("view.submit", hctx.handleViewSubmit)
	registry.Register("view.reveal", hctx.handleViewReveal)
	registry.Register("view.revealEmpty", hctx.handleViewRevealEmpty)
	registry.Register("view.revealLast", hctx.handleViewRevealLast)
	registry.Register("view.visibility", hctx.handleViewVisibility)
	registry.Register("view.disposed", hctx.handleViewDisposed)
	registry.Register("view.message", hctx.handleViewMessage)
	registry.Register("view.state", hctx.handleViewState)
	registry.Register("export.tex", hctx.handleExportTex)
	registry.Register("export.pdf", hctx.handleExportPdf)
	registry.Register("run.status", hctx.handleRunStatus)
	registry.Register("config.update", hctx.handleConfigUpdate)
}

// Wait blocks until all background export runs have finished.
func (h *HandlerContext) Wait() {
	h.wg.Wait()
}

func decodeParams(params json.RawMessage, v any) *Error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return ErrInvalidParams(err.Error())
	}
	return nil
}

// --- view.* ---

type ViewResultParams struct {
	CheckResult *checkresult.Result `json:"checkResult"`
}

type ViewStateResult struct {
	State           string `json:"state"`
	HasResult       bool   `json:"hasResult"`
	Visible         bool   `json:"visible"`
	HasUnseenUpdate bool   `json:"hasUnseenUpdate"`
	ViewColumn      int    `json:"viewColumn"`
	Pushes          int    `json:"pushes"`
}

func (h *HandlerContext) viewState() *ViewStateResult {
	snap := h.view.Snapshot()
	return &ViewStateResult{
		State:           string(snap.State),
		HasResult:       snap.HasResult,
		Visible:         snap.Visible,
		HasUnseenUpdate: snap.HasUnseenUpdate,
		ViewColumn:      int(snap.Column),
		Pushes:          snap.Pushes,
	}
}

func (h *HandlerContext) resultParam(params json.RawMessage) (checkresult.Result, *Error) {
	var p ViewResultParams
	if err := decodeParams(params, &p); err != nil {
		return checkresult.Result{}, err
	}
	if p.CheckResult == nil {
		return checkresult.Result{}, ErrInvalidParams("checkResult is required")
	}
	return *p.CheckResult, nil
}

func (h *HandlerContext) handleViewSubmit(_ context.Context, params json.RawMessage) (any, *Error) {
	result, rpcErr := h.resultParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.view.Submit(result)
	return h.viewState(), nil
}

func (h *HandlerContext) handleViewReveal(_ context.Context, params json.RawMessage) (any, *Error) {
	result, rpcErr := h.resultParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h.view.RevealWithResult(result)
	return h.viewState(), nil
}

type ViewRevealEmptyParams struct {
	Source checkresult.Source `json:"source"`
}

func (h *HandlerContext) handleViewRevealEmpty(_ context.Context, params json.RawMessage) (any, *Error) {
	var p ViewRevealEmptyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	switch p.Source {
	case "":
		p.Source = checkresult.SourceProcess
	case checkresult.SourceProcess, checkresult.SourceOutFile:
	default:
		return nil, ErrInvalidParams(fmt.Sprintf("unknown source %q", p.Source))
	}
	h.view.RevealEmpty(p.Source)
	return h.viewState(), nil
}

func (h *HandlerContext) handleViewRevealLast(_ context.Context, _ json.RawMessage) (any, *Error) {
	h.view.RevealWithLastResult()
	return h.viewState(), nil
}

type ViewVisibilityParams struct {
	Visible    *bool `json:"visible"`
	ViewColumn int   `json:"viewColumn,omitempty"`
}

func (h *HandlerContext) handleViewVisibility(_ context.Context, params json.RawMessage) (any, *Error) {
	var p ViewVisibilityParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Visible == nil {
		return nil, ErrInvalidParams("visible is required")
	}
	h.view.NotifyVisibilityChanged(*p.Visible, viewsync.ViewColumn(p.ViewColumn))
	return h.viewState(), nil
}

func (h *HandlerContext) handleViewDisposed(_ context.Context, _ json.RawMessage) (any, *Error) {
	h.view.NotifyDisposed()
	return h.viewState(), nil
}

func (h *HandlerContext) handleViewMessage(_ context.Context, params json.RawMessage) (any, *Error) {
	var msg viewsync.Message
	if err := decodeParams(params, &msg); err != nil {
		return nil, err
	}
	h.view.HandleMessage(msg)
	return map[string]bool{"ok": true}, nil
}

func (h *HandlerContext) handleViewState(_ context.Context, _ json.RawMessage) (any, *Error) {
	return h.viewState(), nil
}

// --- export.* ---

type ExportParams struct {
	Document *export.Document `json:"document"`
}

type ExportResult struct {
	RunID string `json:"run_id"`
}

func (h *HandlerContext) handleExportTex(_ context.Context, params json.RawMessage) (any, *Error) {
	return h.startExport(export.FormatTex, params, h.exporter.ExportTex)
}

func (h *HandlerContext) handleExportPdf(_ context.Context, params json.RawMessage) (any, *Error) {
	return h.startExport(export.FormatPDF, params, h.exporter.ExportPdf)
}

type exportFunc func(ctx context.Context, doc *export.Document) (export.Result, error)

func (h *HandlerContext) startExport(format export.Format, params json.RawMessage, run exportFunc) (any, *Error) {
	var p ExportParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if reason := h.exporter.Check(format, p.Document); reason != "" {
		// Let the exporter show the warning the user would get from a run.
		if _, err := run(h.ctx, p.Document); err != nil {
			h.logger.Debug("rejected export", "error", err)
		}
		return nil, ErrDocumentRejected(reason)
	}

	h.mu.Lock()
	h.nextRunID++
	runID := fmt.Sprintf("run-%d", h.nextRunID)
	state := &RunState{ID: runID, Format: string(format), Status: RunRunning}
	h.runs[runID] = state
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.exportMu.Lock()
		defer h.exportMu.Unlock()

		h.logger.Debug("export started", "run_id", runID, "format", format)
		res, err := run(h.ctx, p.Document)
		h.finishRun(state, res, err)
	}()

	return &ExportResult{RunID: runID}, nil
}

func (h *HandlerContext) finishRun(state *RunState, res export.Result, err error) {
	h.mu.Lock()
	switch {
	case err != nil:
		state.Status = RunFailed
		state.Error = err.Error()
	case res.Rejected():
		state.Status = RunRejected
	case res.OK():
		state.Status = RunSucceeded
	default:
		state.Status = RunFailed
	}
	state.Message = res.Message
	if !res.Rejected() && err == nil {
		status := res.Outcome.ExitStatus
		state.ExitStatus = &status
	}
	snapshot := *state
	h.mu.Unlock()

	h.logger.Debug("export finished", "run_id", snapshot.ID, "state", snapshot.Status)
	if h.notifier == nil {
		return
	}
	if nerr := h.notifier.Notify(NotificationExportFinished, snapshot); nerr != nil {
		h.logger.Debug("failed to send export notification", "error", nerr)
	}
}

// --- run.status ---

type RunStatusParams struct {
	RunID string `json:"run_id"`
}

func (h *HandlerContext) handleRunStatus(_ context.Context, params json.RawMessage) (any, *Error) {
	var p RunStatusParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.RunID == "" {
		return nil, ErrInvalidParams("run_id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.runs[p.RunID]
	if !ok {
		return nil, ErrRunNotFound(p.RunID)
	}
	snapshot := *state
	return &snapshot, nil
}

// --- config.update ---

type ConfigUpdateParams struct {
	Settings map[string]any `json:"settings"`
}

type ConfigUpdateResult struct {
	Java           string   `json:"java"`
	Tla2Tools      string   `json:"tla2tools"`
	Tla2TexOptions []string `json:"tla2texOptions,omitempty"`
	PDFCommand     string   `json:"pdfCommand"`
}

func (h *HandlerContext) handleConfigUpdate(_ context.Context, params json.RawMessage) (any, *Error) {
	var p ConfigUpdateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if h.config == nil {
		return nil, ErrInternalError("no configuration store")
	}
	if err := h.config.ApplySettings(p.Settings); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}
	tools := h.config.Tools()
	return &ConfigUpdateResult{
		Java:           tools.Java,
		Tla2Tools:      tools.Tla2Tools,
		Tla2TexOptions: tools.Tla2TexOptions,
		PDFCommand:     tools.PDFCommand,
	}, nil
}
