package viewsync

// State is the externally observable state of the result view.
type State string

const (
	StateNoView      State = "NoView"
	StateHiddenClean State = "ViewHiddenClean"
	StateHiddenDirty State = "ViewHiddenDirty"
	StateVisible     State = "ViewVisible"
)

// Snapshot is a copy of the controller's bookkeeping, safe to hand out.
type Snapshot struct {
	State           State      `json:"state"`
	HasResult       bool       `json:"has_result"`
	Visible         bool       `json:"visible"`
	HasUnseenUpdate bool       `json:"has_unseen_update"`
	Column          ViewColumn `json:"view_column"`
	Pushes          int        `json:"pushes"`
}

func stateOf(hasPanel, visible, unseen bool) State {
	switch {
	case !hasPanel:
		return StateNoView
	case visible:
		return StateVisible
	case unseen:
		return StateHiddenDirty
	default:
		return StateHiddenClean
	}
}
