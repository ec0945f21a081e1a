// Package reconciler reconciles supplier invoices against purchase orders,
// decides which discrepancies warrant a dispute email, drafts those emails and
// halts every batch that needs action for human sign-off.
//
// The engine only proposes actions: no email is sent and no payment is
// released. Every capability call goes through a guardrail gateway and every
// call, decision and state transition lands in an append-only audit ledger.
//
// Typical use:
//
//	srv, _ := reconciler.New(ctx, reconciler.WithConfig(cfg))
//	defer srv.Close()
//	wfCtx, _ := srv.Run(ctx, "data/", "model.yaml", invoices)
//	if wfCtx.Summary.ApprovalRequired {
//		// hand wfCtx.ApprovalRequestID to a reviewer
//	}
package reconciler
