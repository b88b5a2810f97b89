package logging

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// MethodTracer logs method entry and exit at trace level, tagged with the
// name of the method that called it.
type MethodTracer struct {
	logger *logrus.Entry
}

// NewMethodTracer creates a tracer logging through logger.
func NewMethodTracer(logger *logrus.Entry) *MethodTracer {
	return &MethodTracer{logger: logger}
}

// MethodEntered marks entry into the calling method.
func (t *MethodTracer) MethodEntered() {
	t.log("method entered")
}

// MethodExited marks exit from the calling method.
func (t *MethodTracer) MethodExited() {
	t.log("method exited")
}

func (t *MethodTracer) log(msg string) {
	if !t.logger.Logger.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	// callerName, log, MethodEntered/MethodExited, then the traced method.
	t.logger.WithField("method", callerName(3)).Trace(msg)
}

// callerName returns "Type.Method" (or "func") for the frame skip levels up.
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	// Drop the package qualifier: "userstate.(*Store).SetStartDate" -> "Store.SetStartDate".
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	return name
}

// NopTracer discards all markers.
type NopTracer struct{}

func (NopTracer) MethodEntered() {}
func (NopTracer) MethodExited()  {}
