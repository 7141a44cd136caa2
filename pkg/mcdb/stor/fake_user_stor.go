package stor

import (
	"fmt"

	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
)

type FakeUserStor struct {
	users []mcmodel.User
}

func NewFakeUserStor(users []mcmodel.User) *FakeUserStor {
	return &FakeUserStor{users: users}
}

func (s *FakeUserStor) CreateUser(user *mcmodel.User) (*mcmodel.User, error) {
	user.ID = len(s.users) + 1
	s.users = append(s.users, *user)
	return user, nil
}

func (s *FakeUserStor) GetUserByID(id int) (*mcmodel.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("no such user: %d", id)
}

func (s *FakeUserStor) GetUserByEmail(email string) (*mcmodel.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("no such user: %s", email)
}

func (s *FakeUserStor) GetUserByAPIToken(apitoken string) (*mcmodel.User, error) {
	for _, u := range s.users {
		if u.ApiToken == apitoken {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("no user with that api token")
}
