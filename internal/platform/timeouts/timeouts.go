// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between call sites and makes the
// durations discoverable.
package timeouts

import "time"

// GeneratorCall caps a single puzzle-generation request to an AI model.
const GeneratorCall = 90 * time.Second

// SolverCall caps a single solve request used for self- and cross-validation.
// A solver that exceeds this bound is recorded as not having solved.
const SolverCall = 45 * time.Second

// EventPublish caps a best-effort lifecycle event write.
const EventPublish = 5 * time.Second

// Shutdown limits how long the runtime waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
