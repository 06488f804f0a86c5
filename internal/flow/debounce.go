package flow

import (
	"time"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// State is the per-session validation state driving the checkout UI and the
// submit gate.
type State int

const (
	Unknown State = iota
	Checking
	Valid
	Invalid
	Error
)

var StateTextMap = map[State]string{
	Unknown:  "unknown",
	Checking: "checking",
	Valid:    "valid",
	Invalid:  "invalid",
	Error:    "error",
}

// Action tells the driving UI what to do after an event. The machine itself
// never touches a widget; it only decides.
type Action int

const (
	NoAction Action = iota
	ClearStatus
	ShowChecking
	ShowIncomplete
	IssueRequest // verify the phone returned alongside
	ShowValid
	ShowWarning // not a WhatsApp number; open the modal if enabled
	ShowError
)

var ActionTextMap = map[Action]string{
	NoAction:       "no_action",
	ClearStatus:    "clear_status",
	ShowChecking:   "show_checking",
	ShowIncomplete: "show_incomplete",
	IssueRequest:   "issue_request",
	ShowValid:      "show_valid",
	ShowWarning:    "show_warning",
	ShowError:      "show_error",
}

const (
	// DebounceDelay is the quiet period after the last keystroke before a
	// verification request is issued.
	DebounceDelay = 1000 * time.Millisecond

	// AutofillDelay is the shorter delay used for a field that is already
	// filled on page load (browser autofill).
	AutofillDelay = 500 * time.Millisecond
)

// Debouncer converts a stream of input events into at most one verification
// request per pause in typing and gates form submission on the outcome.
//
// It is deliberately timer-free: Input/Prefill arm a deadline, the driver
// calls Elapse when that deadline passes, and any newer input rearms it.
// At most one deadline is pending at any moment. Responses carry the
// normalized phone they were issued for, so a stale response arriving after
// newer input is discarded instead of trusted.
type Debouncer struct {
	prefix   string
	state    State
	raw      string
	deadline time.Time
	issued   string // normalized phone of the outstanding request
	proceed  bool   // one-shot "proceed without WhatsApp" override
}

func NewDebouncer(prefix string) *Debouncer {
	if prefix == "" {
		prefix = types.DefaultIntlPrefix
	}
	return &Debouncer{prefix: prefix}
}

func (d *Debouncer) State() State { return d.state }

// Deadline returns when the pending debounce fires; zero when nothing is
// pending.
func (d *Debouncer) Deadline() time.Time { return d.deadline }

// Input records an input-change event. Any pending deadline is cancelled,
// the state resets to Unknown and a prior "proceed anyway" confirmation is
// forgotten. Short inputs clear the status without scheduling anything;
// otherwise a transient checking indicator is shown and the debounce is
// armed.
func (d *Debouncer) Input(raw string) Action {
	d.deadline = time.Time{}
	d.state = Unknown
	d.proceed = false
	d.issued = ""
	d.raw = raw
	if len(raw) < MinRawLength {
		return ClearStatus
	}
	d.deadline = timeNow().Add(DebounceDelay)
	return ShowChecking
}

// Prefill arms the shorter autofill deadline for a field already populated
// on page load. Fields at or below the raw threshold are left alone.
func (d *Debouncer) Prefill(raw string) Action {
	d.raw = raw
	if len(raw) <= MinRawLength {
		return NoAction
	}
	d.deadline = timeNow().Add(AutofillDelay)
	return ShowChecking
}

// Elapse handles the debounce deadline firing. It returns the normalized
// phone to verify with IssueRequest, or ShowIncomplete when the settled
// input normalizes below the eligibility threshold. Calling it with no
// armed deadline, or before the deadline, is a no-op.
func (d *Debouncer) Elapse() (string, Action) {
	if d.deadline.IsZero() || timeNow().Before(d.deadline) {
		return "", NoAction
	}
	d.deadline = time.Time{}
	phone := NormalizePhone(d.raw, d.prefix)
	if len(phone) < MinDigits {
		d.state = Unknown
		return "", ShowIncomplete
	}
	d.state = Checking
	d.issued = phone
	return phone, IssueRequest
}

// Response delivers the proxy's answer for a request issued for issuedFor.
// Responses that no longer match the current input's normalized form are
// stale and ignored. A failure response means "could not verify": the state
// becomes Error, which never blocks submission.
func (d *Debouncer) Response(issuedFor string, result types.VerificationResult, err error) Action {
	if issuedFor != NormalizePhone(d.raw, d.prefix) || issuedFor != d.issued {
		return NoAction
	}
	d.issued = ""
	if err != nil {
		d.state = Error
		return ShowError
	}
	if result.IsWhatsApp {
		d.state = Valid
		return ShowValid
	}
	d.state = Invalid
	return ShowWarning
}

// ConfirmProceed records the explicit "proceed without WhatsApp" choice from
// the confirmation dialog. One-shot: any new input clears it.
func (d *Debouncer) ConfirmProceed() {
	d.proceed = true
}

// Submit decides whether form submission may proceed. Only a confirmed
// not-WhatsApp result without the override blocks; Unknown, Checking, Valid
// and Error all allow submission.
func (d *Debouncer) Submit() bool {
	if d.state == Invalid && !d.proceed {
		return false
	}
	return true
}
