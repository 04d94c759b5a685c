package testutil

import (
	"context"

	"eventhub/database"
	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore struct {
	s *Store
}

func (u *UserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*model.UserData, error) {
	defer u.s.lock(ctx)()
	user, ok := u.s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &user, nil
}

func (u *UserStore) GetByLogin(ctx context.Context, login string) (*model.UserData, error) {
	defer u.s.lock(ctx)()
	for _, user := range u.s.users {
		if user.Login == login {
			return &user, nil
		}
	}
	return nil, database.ErrNotFound
}

func (u *UserStore) Create(ctx context.Context, user *model.UserData) error {
	defer u.s.lock(ctx)()
	for _, existing := range u.s.users {
		if existing.Login == user.Login {
			return database.ErrDuplicate
		}
	}
	u.s.users[user.Id] = *user
	return nil
}
