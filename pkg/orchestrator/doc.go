// Package orchestrator sequences the provisioning of a freshly created
// host: OS package installation, precondition checks, service-unit
// installation, a separately locked dependency bootstrap phase, and the
// final start of the main service. It is an explicit state machine — each
// phase either fully completes or moves the run to a terminal failed state
// with a traceable reason; completed idempotent phases leave durable
// markers so a re-run resumes instead of repeating work.
package orchestrator
