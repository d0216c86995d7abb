package models

type UserRole string
type RequestStatus string
type RequestVariant string
type Choice string
type VerdictTone string
type LedgerEntryType string
type LedgerReason string
type AssignmentStatus string

const (
	UserRoleRequester UserRole = "requester"
	UserRoleJudge     UserRole = "judge"
	UserRoleExpert    UserRole = "expert"
	UserRoleAdmin     UserRole = "admin"

	RequestStatusOpen       RequestStatus = "open"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"

	VariantStandard   RequestVariant = "standard"
	VariantComparison RequestVariant = "comparison"
	VariantSplitTest  RequestVariant = "split_test"

	ChoiceA   Choice = "A"
	ChoiceB   Choice = "B"
	ChoiceTie Choice = "tie"

	ToneEncouraging  VerdictTone = "encouraging"
	ToneHonest       VerdictTone = "honest"
	ToneConstructive VerdictTone = "constructive"
	ToneBlunt        VerdictTone = "blunt"

	LedgerEntryDebit  LedgerEntryType = "debit"
	LedgerEntryCredit LedgerEntryType = "credit"

	LedgerReasonRequestCharge LedgerReason = "request_charge"
	LedgerReasonGrant         LedgerReason = "grant"
	LedgerReasonRefund        LedgerReason = "refund"

	AssignmentStatusAssigned AssignmentStatus = "assigned"
	AssignmentStatusFailed   AssignmentStatus = "failed"
)

// Variants - все варианты заявок в порядке выборки
var Variants = []RequestVariant{VariantStandard, VariantComparison, VariantSplitTest}

// AcceptingStatuses - статусы, в которых заявка принимает вердикты
var AcceptingStatuses = []RequestStatus{RequestStatusOpen, RequestStatusInProgress}

func (s RequestStatus) AcceptsVerdicts() bool {
	return s == RequestStatusOpen || s == RequestStatusInProgress
}

func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// CanTransitionTo описывает машину состояний заявки:
// open -> in_progress -> completed, open|in_progress -> cancelled, open -> completed.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestStatusOpen:
		return next == RequestStatusInProgress || next == RequestStatusCompleted || next == RequestStatusCancelled
	case RequestStatusInProgress:
		return next == RequestStatusCompleted || next == RequestStatusCancelled
	default:
		return false
	}
}

func (v RequestVariant) Valid() bool {
	switch v {
	case VariantStandard, VariantComparison, VariantSplitTest:
		return true
	}
	return false
}

func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleRequester, UserRoleJudge, UserRoleExpert, UserRoleAdmin:
		return true
	}
	return false
}
