package domain

// ProfileRef identifies a profile in one of the four shapes the service
// historically accepted. The set is closed; reconciliation handles every
// variant explicitly.
type ProfileRef interface {
	profileRef()
}

// ProfileID references a profile by its numeric id.
type ProfileID int64

// ProfileAssignment references a profile by its assignment string.
type ProfileAssignment string

// ProfileSymmetryGroups references a profile by its composition.
type ProfileSymmetryGroups []SymmetryGroup

// ProfileRecord is a partial profile payload. ID wins when set (zero means
// unset), then Assignment, then SymmetryGroups. A record with none of the
// three is invalid.
type ProfileRecord struct {
	ID             int64
	Assignment     string
	SymmetryGroups []SymmetryGroup
}

func (ProfileID) profileRef()             {}
func (ProfileAssignment) profileRef()     {}
func (ProfileSymmetryGroups) profileRef() {}
func (ProfileRecord) profileRef()         {}
