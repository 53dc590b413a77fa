// Package faults defines the error taxonomy shared by every hardening component.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorises a failure.
type Kind string

// Error kinds.
const (
	KindPrivilege           Kind = "PRIVILEGE"
	KindUnsupportedPlatform Kind = "UNSUPPORTED_PLATFORM"
	KindPackageInstall      Kind = "PACKAGE_INSTALL"
	KindConfigAccess        Kind = "CONFIG_ACCESS"
	KindServiceNotFound     Kind = "SERVICE_NOT_FOUND"
	KindServiceAction       Kind = "SERVICE_ACTION"
	KindVerificationFailed  Kind = "VERIFICATION_FAILED"
)

// String returns the kind as printed in reports.
func (k Kind) String() string {
	return string(k)
}

// PreRun reports whether the kind is raised before any mutation happens.
func (k Kind) PreRun() bool {
	return k == KindPrivilege || k == KindUnsupportedPlatform
}

// Error is a classified failure naming the directive, service, package or
// path it concerns.
type Error struct {
	Kind       Kind
	Message    string
	Subject    string // directive, service, package or path implicated
	Suggestion string
	Underlying error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Subject != "" {
		fmt.Fprintf(&b, " [%s]", e.Subject)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error of the same kind, so errors.Is(err, faults.ErrConfigAccess) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Subject == "" && t.Message == "" && e.Kind == t.Kind
	}
	return false
}

// Format returns a multi-line rendering with every populated detail.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Subject != "" {
		fmt.Fprintf(&b, "\n  Subject: %s", e.Subject)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}
	return b.String()
}

// WithSuggestion returns a copy of e carrying suggestion.
func (e *Error) WithSuggestion(suggestion string) *Error {
	c := *e
	c.Suggestion = suggestion
	return &c
}

// Sentinels for errors.Is comparisons.
var (
	ErrPrivilege           = &Error{Kind: KindPrivilege}
	ErrUnsupportedPlatform = &Error{Kind: KindUnsupportedPlatform}
	ErrPackageInstall      = &Error{Kind: KindPackageInstall}
	ErrConfigAccess        = &Error{Kind: KindConfigAccess}
	ErrServiceNotFound     = &Error{Kind: KindServiceNotFound}
	ErrServiceAction       = &Error{Kind: KindServiceAction}
	ErrVerificationFailed  = &Error{Kind: KindVerificationFailed}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// SubjectOf returns the subject of the first *Error in err's chain.
func SubjectOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}

// NewPrivilegeError reports that the process lacks administrative rights.
func NewPrivilegeError(uid int) *Error {
	return &Error{
		Kind:       KindPrivilege,
		Message:    fmt.Sprintf("must run as root (effective uid %d)", uid),
		Suggestion: "Re-run with sudo or as the root user.",
	}
}

// NewUnsupportedPlatformError reports a host outside the supported OS family.
func NewUnsupportedPlatformError(reason string) *Error {
	return &Error{
		Kind:       KindUnsupportedPlatform,
		Message:    "unsupported platform: " + reason,
		Suggestion: "hostharden supports Debian-family systems with apt-get.",
	}
}

// NewPackageInstallError reports a failed package manager operation.
func NewPackageInstallError(packages []string, err error) *Error {
	return &Error{
		Kind:       KindPackageInstall,
		Message:    "package operation failed",
		Subject:    strings.Join(packages, " "),
		Suggestion: "Check network access and apt sources, then re-run; completed steps are idempotent.",
		Underlying: err,
	}
}

// NewConfigAccessError reports an unreadable or unwritable configuration file.
func NewConfigAccessError(path string, err error) *Error {
	return &Error{
		Kind:       KindConfigAccess,
		Message:    "cannot access configuration file",
		Subject:    path,
		Underlying: err,
	}
}

// NewServiceNotFoundError reports that none of the candidate units exist.
func NewServiceNotFoundError(logical string, candidates []string) *Error {
	return &Error{
		Kind:       KindServiceNotFound,
		Message:    fmt.Sprintf("no unit found for %s", logical),
		Subject:    strings.Join(candidates, "|"),
		Suggestion: "Confirm the package providing the service installed correctly.",
	}
}

// NewServiceActionError reports a failed enable or restart.
func NewServiceActionError(action, service string, err error) *Error {
	return &Error{
		Kind:       KindServiceAction,
		Message:    "service " + action + " failed",
		Subject:    service,
		Underlying: err,
	}
}

// NewVerificationFailedError reports that the system did not reach the intended state.
func NewVerificationFailedError(subject, message string) *Error {
	return &Error{
		Kind:    KindVerificationFailed,
		Message: message,
		Subject: subject,
	}
}

// NewCommandError reports a system command that failed or exited non-zero.
// It is classed with service actions; command is the full command line.
func NewCommandError(command string, err error) *Error {
	return &Error{
		Kind:       KindServiceAction,
		Message:    "command failed",
		Subject:    command,
		Underlying: err,
	}
}
