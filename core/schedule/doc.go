// Package schedule implements the scheduling core: business-rule validation,
// conflict detection, continuity scoring, caregiver selection and the
// transactional session lifecycle. The Scheduler is the only writer of
// sessions; every committed change appends exactly one audit event.
package schedule
