// Package approval records the human sign-off boundary of a batch.
//
// The workflow files a Request when a batch halts for approval; a reviewer
// later records a Decision. The engine never acts on the decision itself.
package approval
