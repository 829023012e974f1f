package habit

// ApplyCompletion folds one completion of durationMs into the running
// aggregates. Pure: the caller persists the returned value.
func ApplyCompletion(a Aggregates, durationMs int64) Aggregates {
	a.CompletionCount++
	a.TotalDurationSum += durationMs
	return a
}

// ReverseCompletion undoes a prior completion's contribution. Both fields
// clamp at zero so a double reversal or corrupted input can never drive the
// aggregates negative.
func ReverseCompletion(a Aggregates, durationMs int64) Aggregates {
	a.TotalDurationSum = max(a.TotalDurationSum-durationMs, 0)
	a.CompletionCount = max(a.CompletionCount-1, 0)
	return a
}

// MeanDuration returns the mean completion duration in milliseconds, and
// false when there is no completion history yet.
func MeanDuration(a Aggregates) (float64, bool) {
	if a.CompletionCount == 0 {
		return 0, false
	}
	return float64(a.TotalDurationSum) / float64(a.CompletionCount), true
}
