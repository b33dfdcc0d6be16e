package viewsync

//go:generate go tool mockgen -source=ports.go -destination=mocks.go -package=viewsync

// Panel is a host-provided detached surface that displays check results.
// Implementations must not call back into the Controller synchronously
// from PostMessage or Reveal.
type Panel interface {
	// Reveal brings an existing panel to the front.
	Reveal()

	// PostMessage delivers payload to the panel's content.
	PostMessage(payload any) error
}

// Host creates panels. The returned panel starts out visible.
type Host interface {
	CreatePanel(title string) (Panel, error)
}

// CommandExecutor runs a host command by name.
type CommandExecutor interface {
	ExecuteCommand(name string) error
}

// FileOpener opens a file in the host editor at a position.
type FileOpener interface {
	OpenFile(path string, column ViewColumn, line, character int) error
}

// ViewColumn mirrors the host's editor column numbering. Positive values
// are absolute columns; the negative constants are symbolic.
type ViewColumn int

const (
	ColumnBeside ViewColumn = -2
	ColumnActive ViewColumn = -1
	ColumnNone   ViewColumn = 0
	ColumnOne    ViewColumn = 1
)
