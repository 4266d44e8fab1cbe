package dag

import "github.com/pkg/errors"

var (
	// ErrMalformedBlock rejects a submission with no id, no block, no branch or an empty parent id.
	ErrMalformedBlock = errors.New("malformed block")
	// ErrIdentityMismatch rejects a block whose advertised id is not its content address.
	ErrIdentityMismatch = errors.New("block id does not match block content")
	// ErrInconsistentStore means a comparison was asked about a block without metadata.
	// It is raised as a panic: the caller broke the "known history only" precondition.
	ErrInconsistentStore = errors.New("inconsistent store")
	// ErrUnknownEventKind is returned when subscribing to anything but block or head events.
	ErrUnknownEventKind = errors.New("unknown event kind")
)
