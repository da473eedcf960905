// Package casestore holds the Case record model and its keyed stores.
//
// The store is deliberately dumb: CRUD plus natural-key lookups plus the
// processed-message set, with referential bookkeeping (UpdatedAt stamps,
// append-only status history, idempotent message attachment) but no
// matching logic. The matcher package owns every reconciliation decision.
//
// Three backends exist: InMemoryStore for tests and single-process use,
// PostgresStore for running caselink as a service, and RedisProcessedSet
// when the processed-message set should be shared across processes.
package casestore
