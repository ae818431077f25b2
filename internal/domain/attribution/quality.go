package attribution

// Quality grade thresholds
const (
	gradeAThreshold = 0.95
	gradeBThreshold = 0.85
	gradeCThreshold = 0.70
)

// DataQuality describes how much of the raw input could be trusted
type DataQuality struct {
	TotalEvents           int                 `json:"total_events"`
	ValidEvents           int                 `json:"valid_events"`
	OpenEvents            int                 `json:"open_events"`
	ExcludedEvents        int                 `json:"excluded_events"`
	NonForwardTransitions int                 `json:"non_forward_transitions"`
	WarningsByKind        map[WarningKind]int `json:"warnings_by_kind"`
	Score                 float64             `json:"score"`
	Grade                 string              `json:"grade"`
}

// QualityScore rates a computation. The score is the valid share of events,
// scaled down by the share of non-forward transitions among adjacent pairs.
func QualityScore(norm NormalizationResult, attr AttributionResult) DataQuality {
	total := len(norm.Valid) + len(norm.Excluded)
	q := DataQuality{
		TotalEvents:           total,
		ValidEvents:           len(norm.Valid),
		OpenEvents:            norm.OpenCount(),
		ExcludedEvents:        len(norm.Excluded),
		NonForwardTransitions: attr.NonForwardTransitions,
		WarningsByKind:        CountByKind(append(append([]Warning{}, norm.Warnings...), attr.Warnings...)),
	}
	if total == 0 {
		q.Grade = gradeFor(0)
		return q
	}

	score := float64(q.ValidEvents) / float64(total)
	if attr.Transitions > 0 {
		score *= 1 - float64(attr.NonForwardTransitions)/float64(attr.Transitions)
	}
	q.Score = score
	q.Grade = gradeFor(score)
	return q
}

func gradeFor(score float64) string {
	switch {
	case score >= gradeAThreshold:
		return "A"
	case score >= gradeBThreshold:
		return "B"
	case score >= gradeCThreshold:
		return "C"
	default:
		return "D"
	}
}
