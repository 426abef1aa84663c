// Package dasherr defines the error kinds a plugin render can fail with.
//
// Every error that leaves a plugin entry point is an *Error. Its Kind tells the
// caller how to react, its message key yields the localized text shown to the
// user, and Cause keeps the low-level error for the logs.
package dasherr

import (
	"errors"
	"strings"

	"github.com/mule-ai/inkdash/pkg/i18n"
)

type Kind int

const (
	// KindConfiguration marks missing or invalid user input. The message is
	// shown to the user verbatim.
	KindConfiguration Kind = iota + 1
	// KindFetch marks network or HTTP failures of an external source.
	KindFetch
	// KindParse marks malformed content such as broken feed XML.
	KindParse
	// KindRender marks template or raster failures and anything unexpected.
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind  Kind
	Msg   i18n.Key
	Args  []any
	Cause error
}

func (e *Error) Error() string {
	b := strings.Builder{}
	b.WriteString(e.Kind.String())
	b.WriteString(" error: ")
	b.WriteString(i18n.T("en", e.Msg, e.Args...))
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Message returns the user-facing text in lang.
func (e *Error) Message(lang string) string {
	return i18n.T(lang, e.Msg, e.Args...)
}

func Configuration(msg i18n.Key, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Msg: msg, Args: args}
}

func Fetch(msg i18n.Key, cause error) *Error {
	return &Error{Kind: KindFetch, Msg: msg, Cause: cause}
}

func Parse(msg i18n.Key, cause error) *Error {
	return &Error{Kind: KindParse, Msg: msg, Cause: cause}
}

func Render(msg i18n.Key, cause error) *Error {
	return &Error{Kind: KindRender, Msg: msg, Cause: cause}
}

// Wrap returns err unchanged when it already carries a kind and turns
// anything else into a render error that preserves the cause.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return Render(i18n.RenderFailed, err)
}

// KindOf returns the kind of err, or zero when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// IsKind reports whether err is a domain error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the localized user-facing text for any error. Errors
// without a kind get the generic render message so raw causes never reach
// the user.
func Message(err error, lang string) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message(lang)
	}
	return i18n.T(lang, i18n.RenderFailed)
}
