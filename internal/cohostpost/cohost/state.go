package cohost

// State is the progress of a single publish call.
type State int

const (
	Idle State = iota
	DraftCreated
	AttachmentRequested
	Uploaded
	AttachmentConfirmed
	PostFinalized
	Failed
)

var stateNames = [...]string{
	Idle:                "idle",
	DraftCreated:        "draft-created",
	AttachmentRequested: "attachment-requested",
	Uploaded:            "uploaded",
	AttachmentConfirmed: "attachment-confirmed",
	PostFinalized:       "post-finalized",
	Failed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == PostFinalized || s == Failed
}

// Result describes how a publish call ended. Reached is the last state
// completed before a failure (equal to State on success).
type Result struct {
	State        State
	Reached      State
	PostID       int64
	AttachmentID string
	Err          error
}

// OK reports a finalized post.
func (r Result) OK() bool { return r.State == PostFinalized && r.Err == nil }
