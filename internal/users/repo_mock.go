package users

import (
	"context"
	"time"
)

type repoMock struct {
	users  map[int]*User
	nextID int
}

func NewMockUsersRepo() *repoMock {
	return &repoMock{
		users:  make(map[int]*User),
		nextID: 1,
	}
}

func (r *repoMock) Add(_ context.Context, user User) (*User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, ErrUsernameTaken
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = &user
	return &user, nil
}

func (r *repoMock) Get(_ context.Context, id int) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *repoMock) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) UpdateProfile(ctx context.Context, user *User) error {
	if _, err := r.Get(ctx, user.ID); err != nil {
		return err
	}
	r.users[user.ID] = user
	return nil
}

func (r *repoMock) SetLastLogin(ctx context.Context, id int, at time.Time) error {
	user, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	user.LastLoginAt = &at
	return nil
}
