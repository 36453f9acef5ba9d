/*
Package session coordinates exclusive access to trees and the run journal.

A tree's engine is single-owner, so concurrent run requests for the same
tree are serialized here, with local reference-counted locks and an optional
distributed locker for multi-replica deployments.
*/
package session
