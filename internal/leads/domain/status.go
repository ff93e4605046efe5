// Package domain provides core business rules for the leads bounded context.
package domain

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid lead transition")
	ErrAlreadyAssigned   = errors.New("lead already assigned")
	ErrTerminalStage     = errors.New("pipeline stage is final")
	ErrUnknownValue      = errors.New("unknown value")
)

// Status is the lifecycle axis of a lead.
type Status string

const (
	StatusPending              Status = "PENDING"
	StatusMatching             Status = "MATCHING"
	StatusWaitingAgentAccept   Status = "WAITING_AGENT_ACCEPT"
	StatusAvailable            Status = "AVAILABLE"
	StatusAccepted             Status = "ACCEPTED"
	StatusWaitingOwnerApproval Status = "WAITING_OWNER_APPROVAL"
	StatusConfirmed            Status = "CONFIRMED"
	StatusCompleted            Status = "COMPLETED"
	StatusCancelled            Status = "CANCELLED"
	StatusExpired              Status = "EXPIRED"
	StatusRejected             Status = "REJECTED"
	StatusOwnerRejected        Status = "OWNER_REJECTED"
)

// transitions lists the explicit moves. CANCELLED and EXPIRED are reachable
// from every non-terminal status and are not repeated here.
var transitions = map[Status][]Status{
	StatusPending:              {StatusMatching},
	StatusMatching:             {StatusWaitingAgentAccept, StatusAvailable},
	StatusWaitingAgentAccept:   {StatusAccepted, StatusMatching},
	StatusAvailable:            {StatusWaitingAgentAccept, StatusRejected},
	StatusAccepted:             {StatusWaitingOwnerApproval, StatusConfirmed},
	StatusWaitingOwnerApproval: {StatusConfirmed, StatusOwnerRejected},
	StatusConfirmed:            {StatusCompleted},
}

var terminalStatuses = map[Status]bool{
	StatusCompleted:     true,
	StatusCancelled:     true,
	StatusExpired:       true,
	StatusRejected:      true,
	StatusOwnerRejected: true,
}

// agentHoldingStatuses are the statuses in which the lead counts against an
// agent's active lead total.
var agentHoldingStatuses = map[Status]bool{
	StatusWaitingAgentAccept:   true,
	StatusAccepted:             true,
	StatusWaitingOwnerApproval: true,
	StatusConfirmed:            true,
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := transitions[s]; ok || terminalStatuses[s] {
		return s, nil
	}
	return "", ErrUnknownValue
}

func (s Status) IsTerminal() bool { return terminalStatuses[s] }

// HoldsAgent reports whether a lead in s is counted as active for its agent.
func (s Status) HoldsAgent() bool { return agentHoldingStatuses[s] }

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() || from == to {
		return false
	}
	if to == StatusCancelled || to == StatusExpired {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
