package domain

// Stage is the sales pipeline axis of a lead, independent of Status.
type Stage string

const (
	StageNew       Stage = "NEW"
	StageContact   Stage = "CONTACT"
	StageVisit     Stage = "VISIT"
	StageProposal  Stage = "PROPOSAL"
	StageDocuments Stage = "DOCUMENTS"
	StageWon       Stage = "WON"
	StageLost      Stage = "LOST"
)

var knownStages = map[Stage]struct{}{
	StageNew:       {},
	StageContact:   {},
	StageVisit:     {},
	StageProposal:  {},
	StageDocuments: {},
	StageWon:       {},
	StageLost:      {},
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if _, ok := knownStages[s]; !ok {
		return "", ErrUnknownValue
	}
	return s, nil
}

// IsTerminal reports whether the stage is absorbing.
func (s Stage) IsTerminal() bool {
	return s == StageWon || s == StageLost
}

// Outcome is the final result recorded when a lead completes.
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(raw) {
	case OutcomeWon, OutcomeLost:
		return Outcome(raw), nil
	}
	return "", ErrUnknownValue
}

// Stage returns the pipeline stage a completed lead is forced into.
func (o Outcome) Stage() Stage {
	if o == OutcomeWon {
		return StageWon
	}
	return StageLost
}
