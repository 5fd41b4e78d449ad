package service

import (
	"strings"

	"github.com/jjenkins/okbills/internal/model"
	"github.com/samber/lo"
)

// OpenStates action classification tags that drive stage inference
const (
	TagExecutiveSignature = "executive-signature"
	TagExecutiveVeto      = "executive-veto"
	TagLineItemVeto       = "executive-veto-line-item"
	TagBecameLaw          = "became-law"
	TagPassage            = "passage"
	TagCommitteePassage   = "committee-passage"
	TagCommitteeFavorable = "committee-passage-favorable"
	TagReferralCommittee  = "referral-committee"
	TagThirdReading       = "reading-3"
	TagIntroduction       = "introduction"
	TagFiling             = "filing"
)

// tagRule maps any of a set of primary tags to a stage
type tagRule struct {
	tags  []string
	stage model.Stage
}

// Checked in order after the terminal and passage rules. Terminal outcomes
// come first because bills pick up referral tags after being signed.
var (
	terminalRules = []tagRule{
		{tags: []string{TagExecutiveSignature}, stage: model.StageSigned},
		{tags: []string{TagExecutiveVeto, TagLineItemVeto}, stage: model.StageVetoed},
		{tags: []string{TagBecameLaw}, stage: model.StageBecameLaw},
	}
	progressRules = []tagRule{
		{tags: []string{TagCommitteePassage, TagCommitteeFavorable}, stage: model.StageCommitteeApproved},
		{tags: []string{TagReferralCommittee}, stage: model.StageCommittee},
		{tags: []string{TagThirdReading}, stage: model.StageFloorCalendar},
		{tags: []string{TagIntroduction, TagFiling}, stage: model.StageIntroduced},
	}
	descriptionRules = []struct {
		keyword string
		stage   model.Stage
	}{
		{"signed", model.StageSigned},
		{"veto", model.StageVetoed},
		{"enrolled", model.StageEnrolled},
		{"passed", model.StagePassedChamber},
		{"committee", model.StageCommittee},
	}
)

// ClassifyStage infers a bill's stage from its actions. It is a pure function
// of the set of primary tags present, the passage count, and the description
// of the last action; it never fails and defaults to introduced.
func ClassifyStage(actions []model.ActionMeta) model.Stage {
	if len(actions) == 0 {
		return model.StageIntroduced
	}

	primary := make(map[string]bool)
	for _, a := range actions {
		if tag := ActionClassification(a); tag != "" {
			primary[tag] = true
		}
	}

	if stage, ok := matchRules(terminalRules, primary); ok {
		return stage
	}

	if primary[TagPassage] {
		passages := lo.CountBy(actions, func(a model.ActionMeta) bool {
			return lo.Contains(a.Classification, TagPassage)
		})
		if passages >= 2 {
			return model.StageEnrolled
		}
		return model.StagePassedChamber
	}

	if stage, ok := matchRules(progressRules, primary); ok {
		return stage
	}

	latest := strings.ToLower(actions[len(actions)-1].Description)
	for _, rule := range descriptionRules {
		if strings.Contains(latest, rule.keyword) {
			return rule.stage
		}
	}

	return model.StageIntroduced
}

// ActionClassification returns the single coarse tag stored for an action:
// its first classification, or "" when it has none.
func ActionClassification(a model.ActionMeta) string {
	if len(a.Classification) == 0 {
		return ""
	}
	return strings.TrimSpace(a.Classification[0])
}

func matchRules(rules []tagRule, present map[string]bool) (model.Stage, bool) {
	for _, rule := range rules {
		for _, tag := range rule.tags {
			if present[tag] {
				return rule.stage, true
			}
		}
	}
	return "", false
}
