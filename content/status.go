package content

// Status is the lifecycle flag shared by sessions and custom content.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPosted   Status = "posted"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusApproved, StatusRejected},
	StatusApproved: {StatusPosted},
}

// CanTransition reports whether moving from s to next follows
// draft -> {approved, rejected} and approved -> posted.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusRejected, StatusPosted:
		return true
	}
	return false
}

// Stage is the admin-facing workflow state derived from Status.
type Stage string

const (
	StageAwaitingGeneration Stage = "AWAITING_GENERATION"
	StageAwaitingDecision   Stage = "AWAITING_ADMIN_DECISION"
	StagePublished          Stage = "PUBLISHED"
	StageRejected           Stage = "REJECTED"
)

// Stage maps a stored status onto the approval workflow. An approved row that was
// never posted is still awaiting publication, so it reports AWAITING_ADMIN_DECISION.
func (s Status) Stage() Stage {
	switch s {
	case StatusDraft, StatusApproved:
		return StageAwaitingDecision
	case StatusPosted:
		return StagePublished
	case StatusRejected:
		return StageRejected
	}
	return StageAwaitingGeneration
}

// ArabicLabel is the badge text shown to admins and on the preview page.
func (s Status) ArabicLabel() string {
	switch s {
	case StatusApproved:
		return "مُعْتَمَدٌ"
	case StatusRejected:
		return "مَرْفُوضٌ"
	case StatusPosted:
		return "مَنْشُورٌ"
	default:
		return "مُسَوَّدَةٌ"
	}
}
