package models

import (
	"gorm.io/gorm"
)

// WizardSession is one member's in-progress booking wizard. The selection
// state lives in a JSON blob so the wizard package owns its own shape; the
// row exists only so an open wizard survives a process restart. Rows are
// deleted on finalize or abandon and swept once they outlive the session TTL.
type WizardSession struct {
	gorm.Model
	SessionID  string `json:"session_id" gorm:"uniqueIndex"`
	MemberID   int64  `json:"member_id" gorm:"index"`
	ActivityID int64  `json:"activity_id"`
	State      []byte `json:"state"`
}
