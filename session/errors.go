package session

import "fmt"

// Step names a stage of a session. Steps run in declaration order.
type Step string

const (
	StepOptions   Step = "options"
	StepContext   Step = "context"
	StepModule    Step = "module"
	StepBuilder   Step = "builder"
	StepTypes     Step = "types"
	StepFunction  Step = "function"
	StepBody      Step = "body"
	StepVerify    Step = "verify"
	StepSerialize Step = "serialize"
	StepRelease   Step = "release"
)

// StepError reports the step at which a session failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
