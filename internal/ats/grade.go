package ats

type gradeBand struct {
	min     float64
	grade   string
	verdict string
}

var gradeBands = []gradeBand{
	{92, "A+", "Exceptional – very high probability of passing ATS filters."},
	{83, "A", "Strong – high probability of passing ATS and reaching a recruiter."},
	{74, "B", "Good – should pass most ATS systems. Minor improvements possible."},
	{63, "C", "Moderate – add more JD keywords and quantify achievements."},
	{50, "D", "Weak – significant tailoring needed before applying."},
}

const (
	failGrade   = "F"
	failVerdict = "Poor – resume needs major revision to match this role."
)

// Grade maps a total score to its letter grade and canned verdict.
func Grade(total float64) (grade, verdict string) {
	for _, b := range gradeBands {
		if total >= b.min {
			return b.grade, b.verdict
		}
	}
	return failGrade, failVerdict
}
