package user

import "context"

// repoStub only implements uniqueness checks.
type repoStub struct {
	Repository
	users []User
}

func newRepoStub(users ...User) *repoStub {
	return &repoStub{users: users}
}

func (r *repoStub) CheckUsernameUniqueness(_ context.Context, username, email string, _ ...User) error {
	for _, usr := range r.users {
		if username != "" && usr.Username == username {
			return ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return ErrEmailExists
		}
	}
	return nil
}
