// Package core defines the shared data model of the orchestration pipeline:
// requests and responses, retrieved context chunks, the agent capability
// contract with its fixed outcome set, the per-request invocation trace and
// the typed error taxonomy. All other packages depend on core; core depends
// on nothing but the standard library and uuid.
package core
