package bridge

import (
	"strconv"
	"time"

	"github.com/rbright/flmcp/internal/filechannel"
)

// FailureKind classifies a failed Response for logs and tool output.
type FailureKind string

const (
	FailureNone        FailureKind = "none"
	FailureConnection  FailureKind = "connection"
	FailureUnsupported FailureKind = "unsupported"
	FailureTimeout     FailureKind = "timeout"
	FailureMalformed   FailureKind = "malformed"
	FailureCanceled    FailureKind = "canceled"
	FailureIO          FailureKind = "io"
	FailureDispatch    FailureKind = "dispatch"
)

const (
	msgConnection    = "connection failed"
	msgTriggerFailed = "failed to send trigger"
	msgTimeout       = "timeout after"
	msgMalformed     = "invalid response content"
	msgCanceled      = "canceled"
	msgReadFailed    = "failed to read response"
)

// Result is one finished exchange. Failure is assigned where the failure
// happened, never recovered from the error text.
type Result struct {
	Response filechannel.Response
	Failure  FailureKind
}

// OK reports whether the exchange succeeded.
func (r Result) OK() bool { return r.Failure == FailureNone }

// fail builds a bridge-side failure of kind.
func fail(kind FailureKind, format string, args ...any) Result {
	return Result{Response: filechannel.Failure(format, args...), Failure: kind}
}

// fromDAW wraps a response read from the response file. Anything the DAW
// reports as unsuccessful is a dispatch failure, whatever its text says.
func fromDAW(resp filechannel.Response) Result {
	if resp.Success() {
		return Result{Response: resp, Failure: FailureNone}
	}
	return Result{Response: resp, Failure: FailureDispatch}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
