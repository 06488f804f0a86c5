package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

type DebounceTestSuite struct {
	suite.Suite

	now time.Time
}

func TestDebounceTestSuite(t *testing.T) {
	suite.Run(t, new(DebounceTestSuite))
}

func (s *DebounceTestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	SetTimeNowFn(func() time.Time { return s.now })
}

func (s *DebounceTestSuite) TearDownTest() {
	RestoreTimeNow()
}

func (s *DebounceTestSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *DebounceTestSuite) TestShortInputClearsStatus() {
	d := NewDebouncer("55")
	s.Equal(ClearStatus, d.Input("1234567"))
	s.True(d.Deadline().IsZero())
	_, a := d.Elapse()
	s.Equal(NoAction, a)
	s.True(d.Submit())
}

func (s *DebounceTestSuite) TestDebounceArmsAndFires() {
	d := NewDebouncer("55")
	s.Equal(ShowChecking, d.Input("(11) 98888-7777"))

	// before the quiet period nothing fires
	s.advance(500 * time.Millisecond)
	_, a := d.Elapse()
	s.Equal(NoAction, a)

	s.advance(DebounceDelay)
	phone, a := d.Elapse()
	s.Equal(IssueRequest, a)
	s.Equal("5511988887777", phone)
	s.Equal(Checking, d.State())
}

func (s *DebounceTestSuite) TestNewInputCancelsPendingTimer() {
	d := NewDebouncer("55")
	d.Input("(11) 98888-777")
	s.advance(900 * time.Millisecond)
	d.Input("(11) 98888-7777") // rearms
	s.advance(DebounceDelay - 100*time.Millisecond)
	_, a := d.Elapse()
	s.Equal(NoAction, a, "old deadline must not fire")
	s.advance(200 * time.Millisecond)
	phone, a := d.Elapse()
	s.Equal(IssueRequest, a)
	s.Equal("5511988887777", phone, "only the settled value is sent")
}

func (s *DebounceTestSuite) TestIncompleteNumber() {
	d := NewDebouncer("55")
	d.Input("1234-567") // 8 raw chars, 7 digits -> 9 after prefix
	s.advance(DebounceDelay)
	phone, a := d.Elapse()
	s.Equal(ShowIncomplete, a)
	s.Empty(phone)
	s.Equal(Unknown, d.State())
	s.True(d.Submit())
}

func (s *DebounceTestSuite) issue(d *Debouncer, raw string) string {
	d.Input(raw)
	s.advance(DebounceDelay)
	phone, a := d.Elapse()
	s.Require().Equal(IssueRequest, a)
	return phone
}

func (s *DebounceTestSuite) TestValidResponse() {
	d := NewDebouncer("55")
	phone := s.issue(d, "11988887777")
	a := d.Response(phone, types.VerificationResult{IsWhatsApp: true, Number: phone, Name: "Ana"}, nil)
	s.Equal(ShowValid, a)
	s.Equal(Valid, d.State())
	s.True(d.Submit())
}

func (s *DebounceTestSuite) TestInvalidBlocksUntilConfirmed() {
	d := NewDebouncer("55")
	phone := s.issue(d, "11988887777")
	a := d.Response(phone, types.VerificationResult{IsWhatsApp: false, Number: phone}, nil)
	s.Equal(ShowWarning, a)
	s.Equal(Invalid, d.State())
	s.False(d.Submit(), "unconfirmed not-WhatsApp blocks submission")

	d.ConfirmProceed()
	s.True(d.Submit(), "explicit proceed overrides the block")
}

func (s *DebounceTestSuite) TestNewInputClearsProceedOverride() {
	d := NewDebouncer("55")
	phone := s.issue(d, "11988887777")
	d.Response(phone, types.VerificationResult{IsWhatsApp: false}, nil)
	d.ConfirmProceed()
	s.True(d.Submit())

	phone = s.issue(d, "11977776666")
	d.Response(phone, types.VerificationResult{IsWhatsApp: false}, nil)
	s.False(d.Submit(), "override is one-shot")
}

func (s *DebounceTestSuite) TestErrorNeverBlocks() {
	d := NewDebouncer("55")
	phone := s.issue(d, "11988887777")
	a := d.Response(phone, types.VerificationResult{}, types.Err(types.ErrUpstreamUnreachable, nil, ""))
	s.Equal(ShowError, a)
	s.Equal(Error, d.State())
	s.True(d.Submit(), "could-not-verify must not block submission")
}

func (s *DebounceTestSuite) TestStaleResponseDiscarded() {
	d := NewDebouncer("55")
	stale := s.issue(d, "11988887777")

	// user types again before the response lands
	d.Input("11977776666")
	a := d.Response(stale, types.VerificationResult{IsWhatsApp: false}, nil)
	s.Equal(NoAction, a, "response for superseded input is ignored")
	s.Equal(Unknown, d.State())
	s.True(d.Submit())
}

func (s *DebounceTestSuite) TestPrefillSchedulesAutofillCheck() {
	d := NewDebouncer("55")
	s.Equal(ShowChecking, d.Prefill("11988887777"))
	s.advance(AutofillDelay)
	phone, a := d.Elapse()
	s.Equal(IssueRequest, a)
	s.Equal("5511988887777", phone)

	short := NewDebouncer("55")
	s.Equal(NoAction, short.Prefill("12345678"))
	s.True(short.Deadline().IsZero())
}
