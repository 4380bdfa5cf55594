// Package analytics aggregates the append-only schedule change log into
// disruption frequency reports and per-entity reliability profiles. Every
// figure is derived from recorded ScheduleEvents and committed sessions;
// reports are read-only and tolerate stale snapshots.
package analytics
