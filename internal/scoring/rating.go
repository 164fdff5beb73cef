package scoring

// Rating is the human-readable band of an overall score.
type Rating string

const (
	Complied   Rating = "Complied"
	Concern    Rating = "Concern"
	Weakness   Rating = "Weakness"
	Deficiency Rating = "Deficiency"
)

// ComplianceThreshold is the lowest overall score rated Complied.
const ComplianceThreshold = 80

// Classify maps an overall score onto its fixed rating band.
func Classify(score int) Rating {
	switch {
	case score >= ComplianceThreshold:
		return Complied
	case score >= 70:
		return Concern
	case score >= 60:
		return Weakness
	default:
		return Deficiency
	}
}
