package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are used at every trust boundary: wrapped domain errors must keep
// their original code, and errors.Is must match by code.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotRegistered, Message: "identity not registered"}
		s.Equal("identity not registered", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeAlreadyReviewed}
		s.Equal("already_reviewed", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeSignerMismatch, Message: "a"}
		err2 := &Error{Code: CodeSignerMismatch, Message: "b"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeSignatureInvalid}).Is(&Error{Code: CodeSignerMismatch}))
	})

	s.Run("works with errors.Is through fmt wrapping", func() {
		inner := New(CodeUnknownCategory, "unknown category: foo")
		wrapped := fmt.Errorf("grant: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeUnknownCategory}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code", func() {
		inner := New(CodeAlreadyRegistered, "already registered")
		err := Wrap(inner, CodeInternal, "register identity")
		s.True(HasCode(err, CodeAlreadyRegistered))
		s.Equal("register identity", err.Error())
	})

	s.Run("applies code to plain errors", func() {
		err := Wrap(errors.New("dial tcp: refused"), CodeStoreUnavailable, "blob store unavailable")
		s.True(HasCode(err, CodeStoreUnavailable))
		s.ErrorContains(errors.Unwrap(err), "refused")
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeIndeterminate, CodeOf(fmt.Errorf("x: %w", New(CodeIndeterminate, "timeout"))))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
	s.Equal(CodeInternal, CodeOf(nil))
}

func (s *DomainErrorsSuite) TestIsTransient() {
	for _, code := range []Code{CodeIndeterminate, CodeStoreUnavailable, CodeTimeout} {
		s.True(IsTransient(New(code, "x")), string(code))
	}
	for _, code := range []Code{CodeUnauthorized, CodeAlreadyReviewed, CodeNotRegistered, CodeSignerMismatch} {
		s.False(IsTransient(New(code, "x")), string(code))
	}
	s.False(IsTransient(errors.New("plain")))
}
