package types

// OutcomeKind tags the variant held by an Outcome
type OutcomeKind int

const (
	OutcomeFailure OutcomeKind = iota
	OutcomeSuccess
)

// Outcome is what a backend adapter observed for one case: either Success with a detail
// message or Failure with an error message. The zero value is a Failure.
type Outcome struct {
	Kind   OutcomeKind
	Detail string
	Error  string
}

// Success builds a successful outcome
func Success(detail string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Detail: detail}
}

// Failure builds a failed outcome
func Failure(err string) Outcome {
	return Outcome{Kind: OutcomeFailure, Error: err}
}

// OutcomeOf converts a (detail, error) pair into an Outcome
func OutcomeOf(detail string, err error) Outcome {
	if err != nil {
		return Failure(err.Error())
	}
	return Success(detail)
}

// Succeeded reports whether the outcome is a Success
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// Message returns the detail for a success and the error for a failure
func (o Outcome) Message() string {
	if o.Succeeded() {
		return o.Detail
	}
	return o.Error
}
