// Package lifecycle implements the match state machine for bank movements.
// Every movement is in exactly one of four states; pending movements can be
// matched, manually matched or ignored, and each of those states returns to
// pending through an explicit unmatch. Nothing is terminal.
package lifecycle

import "backoffice-reconciliation/internal/models"

// Action names one state machine operation.
type Action string

const (
	ActionConfirm         Action = "confirm"
	ActionConfirmCashflow Action = "confirmCashflow"
	ActionManualMatch     Action = "manualMatch"
	ActionIgnore          Action = "ignore"
	ActionUnmatch         Action = "unmatch"
	ActionRunAdvisor      Action = "runAdvisor"
	ActionCreateAndMatch  Action = "createAndMatch"
)

// AllowedActions returns the operations legal for a movement in the given
// state. Drives both transition validation and UI affordances.
func AllowedActions(status models.MatchStatus) []Action {
	switch status {
	case models.StatusPending:
		return []Action{
			ActionConfirm,
			ActionConfirmCashflow,
			ActionManualMatch,
			ActionIgnore,
			ActionRunAdvisor,
			ActionCreateAndMatch,
		}
	case models.StatusMatched, models.StatusManual, models.StatusIgnored:
		return []Action{ActionUnmatch, ActionManualMatch}
	default:
		return nil
	}
}

// ActionAllowed reports whether the action is legal from the given state.
func ActionAllowed(status models.MatchStatus, action Action) bool {
	for _, allowed := range AllowedActions(status) {
		if allowed == action {
			return true
		}
	}
	return false
}
