package sync

// Status is the tri-state outcome of a full reconciliation run
type Status string

const (
	// StatusSuccess means both the pull and push phases completed. Individual
	// record failures may still have occurred; they are counted, not fatal.
	StatusSuccess Status = "success"
	// StatusError means the run failed for a reason other than connectivity
	StatusError Status = "error"
	// StatusNoConnectivity means the remote store was unreachable. Callers
	// should treat this as retryable-later, not as a failure to report.
	StatusNoConnectivity Status = "no_connectivity"
)

// Result summarizes a FullSync run
type Result struct {
	Status Status
	Err    error
	Pulled int
	Pushed int
	Failed int
}

// Retryable reports whether the run should simply be repeated later
func (r Result) Retryable() bool {
	return r.Status == StatusNoConnectivity
}
