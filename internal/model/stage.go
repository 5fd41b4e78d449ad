package model

// Stage is the coarse lifecycle bucket a bill is in, derived from its actions
type Stage string

const (
	StageIntroduced        Stage = "introduced"
	StageCommittee         Stage = "committee"
	StageCommitteeApproved Stage = "committee_approved"
	StageFloorCalendar     Stage = "floor_calendar"
	StagePassedChamber     Stage = "passed_chamber"
	StageEnrolled          Stage = "enrolled"
	StageSigned            Stage = "signed"
	StageVetoed            Stage = "vetoed"
	StageBecameLaw         Stage = "became_law"
	StageDead              Stage = "dead"
)

// AllStages returns every stage in lifecycle order
func AllStages() []Stage {
	return []Stage{
		StageIntroduced,
		StageCommittee,
		StageCommitteeApproved,
		StageFloorCalendar,
		StagePassedChamber,
		StageEnrolled,
		StageSigned,
		StageVetoed,
		StageBecameLaw,
		StageDead,
	}
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	for _, known := range AllStages() {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is an absorbing end state
func (s Stage) IsTerminal() bool {
	switch s {
	case StageSigned, StageVetoed, StageBecameLaw, StageDead:
		return true
	default:
		return false
	}
}

func (s Stage) String() string {
	return string(s)
}
