package domain

// WalkReport summarizes one document walk. FailedPaths holds concrete paths
// (with array indices) of leaves left unresolved; it never holds values.
type WalkReport struct {
	Processed   int      `json:"processed"`
	Failed      int      `json:"failed"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

// Add merges another report into r.
func (r *WalkReport) Add(other WalkReport) {
	r.Processed += other.Processed
	r.Failed += other.Failed
	r.FailedPaths = append(r.FailedPaths, other.FailedPaths...)
}

// OK reports whether no field failed.
func (r WalkReport) OK() bool {
	return r.Failed == 0
}
