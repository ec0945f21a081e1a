// Package audit implements the append-only compliance ledger consulted by a
// human reviewer before approving a batch. Every gateway invocation, every
// decision and every workflow transition produces exactly one Entry.
//
// Entries carry a monotonically assigned sequence number so the order of
// concurrent records can be reconstructed when timestamps tie. Stores only
// append and read; there is no update or delete path.
package audit
