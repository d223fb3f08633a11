package course

import (
	"github.com/trezcool/elimu/core/user"
)

// Educator is the capability required to manage courses & validate learners' work.
// Only NewEducator hands it out, so holding one means the user is an educator.
type Educator struct {
	id string
}

func NewEducator(usr user.User) (Educator, error) {
	if !usr.IsActive || !usr.IsEducator() {
		return Educator{}, newError(KindForbidden, "educator role required")
	}
	return Educator{id: usr.ID}, nil
}

func (e Educator) ID() string { return e.id }

// Owns reports whether c is one of the educator's courses.
func (e Educator) Owns(c Course) bool {
	return e.id != "" && c.EducatorID == e.id
}
