package models

// EventKind selects which notifications a listener receives.
type EventKind string

const (
	EventBlock EventKind = "block"
	EventHead  EventKind = "head"
)

// Event is either a BlockProcessed or a HeadChanged notification, selected by Kind.
type Event struct {
	Kind    EventKind `json:"type"`
	BlockID string    `json:"block_id,omitempty"`
	Branch  string    `json:"branch,omitempty"`
	HeadID  string    `json:"head_block_id,omitempty"`
}

func BlockProcessed(blockID string) Event {
	return Event{Kind: EventBlock, BlockID: blockID}
}

func HeadChanged(branch, headID string) Event {
	return Event{Kind: EventHead, Branch: branch, HeadID: headID}
}
