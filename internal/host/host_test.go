package host

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tlaplus/tlabridge/internal/checkresult"
	"github.com/tlaplus/tlabridge/internal/jsonrpc"
	"github.com/tlaplus/tlabridge/internal/viewsync"
)

type sent struct {
	method string
	params map[string]any
}

type recordingNotifier struct {
	sent []sent
	err  error
}

func (n *recordingNotifier) Notify(method string, params any) error {
	if n.err != nil {
		return n.err
	}
	// Round-trip through JSON the way the transport would.
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	n.sent = append(n.sent, sent{method, m})
	return nil
}

func (n *recordingNotifier) methods() []string {
	var out []string
	for _, s := range n.sent {
		out = append(out, s.method)
	}
	return out
}

func TestRPC_PanelLifecycle(t *testing.T) {
	n := &recordingNotifier{}
	h := NewRPC(n, nil)

	panel, err := h.CreatePanel("TLA+ model checking")
	require.NoError(t, err)
	panel.Reveal()
	require.NoError(t, panel.PostMessage(viewsync.PushMessage{CheckResult: checkresult.Empty(checkresult.SourceProcess)}))

	assert.Equal(t, []string{MethodPanelCreate, MethodPanelReveal, MethodPanelPostMessage}, n.methods())
	assert.Equal(t, "panel-1", n.sent[0].params["panelId"])
	assert.Equal(t, "TLA+ model checking", n.sent[0].params["title"])
	msg := n.sent[2].params["message"].(map[string]any)
	result := msg["checkResult"].(map[string]any)
	assert.Equal(t, "process", result["source"])

	second, err := h.CreatePanel("again")
	require.NoError(t, err)
	require.NoError(t, second.PostMessage("x"))
	assert.Equal(t, "panel-2", n.sent[len(n.sent)-1].params["panelId"])
}

func TestRPC_CreatePanelFailure(t *testing.T) {
	h := NewRPC(&recordingNotifier{err: errors.New("closed pipe")}, nil)
	_, err := h.CreatePanel("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), MethodPanelCreate)
}

func TestRPC_Sink(t *testing.T) {
	n := &recordingNotifier{}
	sink := NewRPC(n, nil).Sink("TLA+ to LaTeX")

	sink.Bind("java -cp tla2tools.jar tla2tex.TLA Spec.tla")
	sink.Append("chunk 1\n")
	sink.Reveal()

	require.Len(t, n.sent, 3)
	assert.Equal(t, sent{MethodOutputBind, map[string]any{"channel": "TLA+ to LaTeX", "commandLine": "java -cp tla2tools.jar tla2tex.TLA Spec.tla"}}, n.sent[0])
	assert.Equal(t, sent{MethodOutputAppend, map[string]any{"channel": "TLA+ to LaTeX", "text": "chunk 1\n"}}, n.sent[1])
	assert.Equal(t, sent{MethodOutputReveal, map[string]any{"channel": "TLA+ to LaTeX"}}, n.sent[2])
}

func TestRPC_MessagesCommandsAndFiles(t *testing.T) {
	n := &recordingNotifier{}
	h := NewRPC(n, nil)

	h.Info("Spec.pdf generated.")
	h.Warn("careful")
	h.Error("Error generating PDF: exit code 1")
	require.NoError(t, h.ExecuteCommand(viewsync.StopCommand))
	require.NoError(t, h.OpenFile("/m/MC.out", viewsync.ColumnBeside, 3, 7))

	require.Len(t, n.sent, 5)
	assert.Equal(t, map[string]any{"type": "info", "message": "Spec.pdf generated."}, n.sent[0].params)
	assert.Equal(t, "warning", n.sent[1].params["type"])
	assert.Equal(t, "error", n.sent[2].params["type"])
	assert.Equal(t, map[string]any{"command": "tlaplus.model.check.stop"}, n.sent[3].params)
	assert.Equal(t, map[string]any{"path": "/m/MC.out", "viewColumn": float64(-2), "line": float64(3), "character": float64(7)}, n.sent[4].params)
}

func TestRPC_DrivesController(t *testing.T) {
	var buf bytes.Buffer
	transport := jsonrpc.NewTransport(strings.NewReader(""), &buf)
	h := NewRPC(transport, nil)
	c := viewsync.NewController(h, viewsync.Options{Commands: h, Files: h})

	c.Submit(checkresult.Result{Source: checkresult.SourceProcess, State: checkresult.StateRunning, Status: "R1"})
	assert.Empty(t, buf.String(), "nothing is sent while there is no panel")

	c.RevealWithLastResult()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var create, post jsonrpc.Notification
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &create))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &post))
	assert.Equal(t, MethodPanelCreate, create.Method)
	assert.Equal(t, MethodPanelPostMessage, post.Method)
	assert.Contains(t, lines[1], `"status":"R1"`)
}

func TestConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut)

	sink := c.Sink("LaTeX to PDF")
	sink.Bind("pdflatex Spec.tex")
	sink.Append("This is pdfTeX\n")
	sink.Reveal()
	c.Info("Spec.pdf generated.")
	c.Warn("PDF generation command not specified. Check the extension settings.")
	c.Error("Error generating PDF: exit code 1")

	assert.Equal(t, "[LaTeX to PDF] pdflatex Spec.tex\nThis is pdfTeX\nSpec.pdf generated.\n", out.String())
	assert.Equal(t, "warning: PDF generation command not specified. Check the extension settings.\n"+
		"error: Error generating PDF: exit code 1\n", errOut.String())
}
