// Package recovery cancels sessions and searches the freed slot for
// alternative placements. Cancellation is an atomic unit like scheduling;
// opportunity searches are read-only and advisory.
package recovery
