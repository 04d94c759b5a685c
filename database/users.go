package database

import (
	"context"
	"fmt"

	"eventhub/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{coll: db.Collection(UsersCollection)}
}

func (s *UserStore) GetByLogin(ctx context.Context, login string) (*model.UserData, error) {
	var user model.UserData
	if err := s.coll.FindOne(ctx, bson.M{"login": login}).Decode(&user); err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (s *UserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*model.UserData, error) {
	var user model.UserData
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user *model.UserData) error {
	_, err := s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("cannot insert user: %w", err)
	}
	return nil
}
