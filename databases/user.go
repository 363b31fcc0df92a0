package databases

// go generate: mockery --name UserDatabase

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicpulse/complaints-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	InsertOne(ctx context.Context, user models.User) (*models.User, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role models.Role) error
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return u.findOne(ctx, bson.M{"_id": oid})
}

// FindByLogin looks a user up by username first and e-mail second, like the sign-in form
func (u *userDatabase) FindByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	return u.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": usernameOrEmail},
		bson.M{"email": usernameOrEmail},
	}})
}

func (u *userDatabase) findOne(ctx context.Context, filter interface{}) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, notFoundOr(err, "failed to find user")
	}
	return user, nil
}

func (u *userDatabase) Exists(ctx context.Context, username, email string) (bool, error) {
	count, err := u.db.Collection(userName).CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
	if err != nil {
		return false, errors.Wrap(err, "failed to count users")
	}
	return count > 0, nil
}

func (u *userDatabase) InsertOne(ctx context.Context, user models.User) (*models.User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := u.db.Collection(userName).InsertOne(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to insert user")
	}
	return &user, nil
}

func (u *userDatabase) UpdateRole(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	res, err := u.db.Collection(userName).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return errors.Wrap(err, "failed to update user role")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
