package viewsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tlaplus/tlabridge/internal/checkresult"
	"go.uber.org/mock/gomock"
)

func push(status string) PushMessage {
	return PushMessage{CheckResult: result(status)}
}

func TestController_PortCallSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := NewMockHost(ctrl)
	panel := NewMockPanel(ctrl)

	gomock.InOrder(
		host.EXPECT().CreatePanel("Model").Return(panel, nil),
		panel.EXPECT().PostMessage(PushMessage{CheckResult: checkresult.Empty(checkresult.SourceProcess)}).Return(nil),
		panel.EXPECT().PostMessage(push("R2")).Return(nil),
		panel.EXPECT().Reveal(),
		panel.EXPECT().PostMessage(push("R2")).Return(nil),
	)

	c := NewController(host, Options{Title: "Model"})
	c.RevealEmpty(checkresult.SourceProcess)
	c.NotifyVisibilityChanged(false, ColumnNone)
	c.Submit(result("R1"))
	c.Submit(result("R2"))
	c.NotifyVisibilityChanged(true, ColumnOne)
	c.RevealWithLastResult()

	assert.Equal(t, 3, c.Snapshot().Pushes)
}

func TestController_FailedPushReplayedOnNextShow(t *testing.T) {
	ctrl := gomock.NewController(t)
	host := NewMockHost(ctrl)
	panel := NewMockPanel(ctrl)

	gomock.InOrder(
		host.EXPECT().CreatePanel(DefaultTitle).Return(panel, nil),
		panel.EXPECT().PostMessage(push("R1")).Return(errors.New("webview gone")),
		panel.EXPECT().PostMessage(push("R1")).Return(nil),
	)

	c := NewController(host, Options{})
	c.RevealWithResult(result("R1"))
	assert.Equal(t, StateVisible, c.State())
	assert.True(t, c.Snapshot().HasUnseenUpdate)

	c.NotifyVisibilityChanged(false, ColumnNone)
	assert.Equal(t, StateHiddenDirty, c.State())
	c.NotifyVisibilityChanged(true, ColumnNone)
	assert.False(t, c.Snapshot().HasUnseenUpdate)
}

func TestController_MessagesReachEditorPorts(t *testing.T) {
	ctrl := gomock.NewController(t)
	commands := NewMockCommandExecutor(ctrl)
	files := NewMockFileOpener(ctrl)

	commands.EXPECT().ExecuteCommand(StopCommand).Return(errors.New("no model check running"))
	files.EXPECT().OpenFile("/m/Spec.tla", ColumnOne, 7, 2).Return(nil)

	c := NewController(NewMockHost(ctrl), Options{Commands: commands, Files: files})
	c.HandleMessage(Message{Command: "stop"})
	c.HandleMessage(Message{Command: "openFile", FilePath: "/m/Spec.tla", Line: 7, Character: 2})
}
