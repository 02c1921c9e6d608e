package capability

import "fmt"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarn    Status = "warn"
	StatusInfo    Status = "info"
)

// Result is what every collaborator operation hands back to a handler.
// Failures travel here as text, never as a panic.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %s", r.Status, r.Message)
}

func Success(format string, args ...any) Result {
	return Result{Status: StatusSuccess, Message: fmt.Sprintf(format, args...)}
}

func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func Warn(format string, args ...any) Result {
	return Result{Status: StatusWarn, Message: fmt.Sprintf(format, args...)}
}

func Info(format string, args ...any) Result {
	return Result{Status: StatusInfo, Message: fmt.Sprintf(format, args...)}
}

// Fail converts an error raised inside a collaborator into an error result.
func Fail(err error, msg string) Result {
	if err == nil {
		return Result{Status: StatusError, Message: msg}
	}
	return Result{Status: StatusError, Message: fmt.Sprintf("%s: %v", msg, err)}
}
