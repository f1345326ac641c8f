package runner

import "github.com/killrvideo/vector-acceptor/types"

// Classify maps a declared expectation and an observed outcome onto one of the four result states
func Classify(shouldSucceed bool, outcome types.Outcome) types.ResultState {
	switch {
	case shouldSucceed && outcome.Succeeded():
		return types.StatePass
	case shouldSucceed:
		return types.StateFail
	case outcome.Succeeded():
		return types.StateUnexpectedPass
	default:
		return types.StateExpectedFail
	}
}
