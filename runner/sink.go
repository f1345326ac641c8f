package runner

import "github.com/killrvideo/vector-acceptor/types"

// ResultSink receives results while a run progresses.
// Consume is called once per case in execution order, Complete once with the final summary.
type ResultSink interface {
	Consume(result types.CaseResult) error
	Complete(summary *Summary) error
}
