package models

import (
	"github.com/republik/appshell/internal/message"
	"github.com/republik/appshell/internal/state"
)

// ShellState is a point-in-time view of the shell for inspection.
type ShellState struct {
	Persisted      state.PersistedState `json:"persisted"`
	Gates          map[state.Gate]bool  `json:"gates"`
	PendingURL     string               `json:"pendingUrl"`
	ContentReady   bool                 `json:"contentReady"`
	AudioPhase     string               `json:"audioPhase"`
	AudioMediaID   string               `json:"audioMediaId,omitempty"`
	PlayerExpanded bool                 `json:"playerExpanded"`
}

// QueuedMessage is one outbound message awaiting acknowledgment.
type QueuedMessage struct {
	ID       string       `json:"id"`
	Type     message.Kind `json:"type"`
	Marked   bool         `json:"marked"`
	Attempts int          `json:"attempts"`
}
