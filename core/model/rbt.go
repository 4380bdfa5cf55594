package model

import "fmt"

// RBT is a caregiver directory record. The directory answers identity and
// employment status only; credential and qualification tracking lives with
// the practice's HR systems.
type RBT struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Validate checks the record carries an id. Directory ids are assigned by
// the practice, never generated here.
func (r RBT) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rbt id is required")
	}
	return nil
}
