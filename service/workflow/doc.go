// Package workflow runs one invoice batch through the reconciliation state
// machine:
//
//	PLANNED -> MATCHED -> (EMAIL_DRAFTED) -> APPROVAL_AWAITING | COMPLETED
//
// ERRORED is reached when the batch has tasks and none of them could be
// matched. Per task failures are recorded on the task and never abort the
// batch. Every capability call goes through the gateway; every decision and
// transition is written to the audit ledger.
package workflow
