package jpeg

import (
	"bytes"
	"errors"

	"github.com/sirupsen/logrus"
)

// MsgLengthMax is the capacity of a libjpeg error message (JMSG_LENGTH_MAX).
const MsgLengthMax = 200

// ErrCodecFatal matches every error raised through libjpeg's error_exit hook.
var ErrCodecFatal = errors.New("libjpeg fatal error")

// MessageBuffer receives one NUL-terminated message from the codec.
type MessageBuffer [MsgLengthMax]byte

// String returns the message up to the first NUL, or the whole buffer if
// the codec filled it completely.
func (b *MessageBuffer) String() string {
	n := bytes.IndexByte(b[:], 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

// CodecError is the panic payload raised by the error bridge and the error
// returned by the public codec functions once it has been recovered.
type CodecError struct {
	Msg string
}

func (e *CodecError) Error() string {
	return "libjpeg: " + e.Msg
}

func (e *CodecError) Is(target error) bool {
	return target == ErrCodecFatal
}

// ErrorFormatter is the part of a codec state that can describe the fault
// it just detected. Truncation to the buffer capacity is the formatter's job.
type ErrorFormatter interface {
	FormatMessage(buf *MessageBuffer)
}

// FatalHandler receives libjpeg's fatal errors. OnFatalError must not return:
// the codec state is unusable once it has been called.
type FatalHandler interface {
	OnFatalError(state ErrorFormatter)
}

// PanicBridge is the default FatalHandler. It panics with a *CodecError
// carrying the codec's own text.
type PanicBridge struct{}

func (PanicBridge) OnFatalError(state ErrorFormatter) {
	var buf MessageBuffer
	state.FormatMessage(&buf)
	panic(&CodecError{Msg: buf.String()})
}

// WarningHandler is implemented by FatalHandlers that want libjpeg's
// non-fatal warnings (corrupt data, premature end of file). Warnings sent to
// a handler without it are dropped.
type WarningHandler interface {
	OnWarning(state ErrorFormatter)
}

// LogBridge logs each fatal message before handing it to Next
// (PanicBridge when nil). Warnings are logged at warn level.
type LogBridge struct {
	Logger logrus.FieldLogger
	Next   FatalHandler
}

func (b LogBridge) OnFatalError(state ErrorFormatter) {
	next := b.Next
	if next == nil {
		next = PanicBridge{}
	}
	logger := b.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	next.OnFatalError(loggingFormatter{state: state, logger: logger})
}

func (b LogBridge) OnWarning(state ErrorFormatter) {
	logger := b.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var buf MessageBuffer
	state.FormatMessage(&buf)
	logger.WithField("component", "libjpeg").Warn(buf.String())
}

type loggingFormatter struct {
	state  ErrorFormatter
	logger logrus.FieldLogger
}

func (f loggingFormatter) FormatMessage(buf *MessageBuffer) {
	f.state.FormatMessage(buf)
	f.logger.WithField("component", "libjpeg").Error(buf.String())
}

// raiseFatal hands state to h and never returns. A handler that comes back
// normally is overridden with the default panic.
func raiseFatal(h FatalHandler, state ErrorFormatter) {
	if h == nil {
		h = PanicBridge{}
	}
	h.OnFatalError(state)

	var buf MessageBuffer
	state.FormatMessage(&buf)
	panic(&CodecError{Msg: buf.String()})
}

// emitWarning passes a non-fatal codec message to h if it wants one.
// Decoding carries on afterwards.
func emitWarning(h FatalHandler, state ErrorFormatter) {
	if w, ok := h.(WarningHandler); ok {
		w.OnWarning(state)
	}
}

// recoverCodecError must be deferred directly. It turns a codec panic into
// the function's error result and re-panics anything else.
func recoverCodecError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok && errors.Is(e, ErrCodecFatal) {
		*err = e
		return
	}
	panic(r)
}
