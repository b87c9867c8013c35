package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrUserNotFound = errors.New("user not found")

// secretFields are excluded from every read unless a method explicitly
// selects them for an internal check.
var secretFields = bson.M{
	"password":               0,
	"verificationCode":       0,
	"verificationCodeExpire": 0,
	"resetPasswordToken":     0,
	"resetPasswordExpire":    0,
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string, includeSecrets bool) (*models.User, error)
	FindVerifiedByEmail(ctx context.Context, email string, includeSecrets bool) (*models.User, error)
	FindPendingByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindPublicByID(ctx context.Context, id primitive.ObjectID) (*models.PublicProfile, error)
	FindAuthors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error)

	SetVerificationCode(ctx context.Context, id primitive.ObjectID, code int, expire time.Time) error
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, set bson.M) error
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string, validAfter time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	IncTotalPosts(ctx context.Context, id primitive.ObjectID, delta int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoUserRepo struct {
	col *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) UserRepository {
	col := db.Collection("users")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return &mongoUserRepo{col: col}
}

func (r *mongoUserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M, includeSecrets bool) (*models.User, error) {
	opts := options.FindOne()
	if !includeSecrets {
		opts.SetProjection(secretFields)
	}
	var u models.User
	err := r.col.FindOne(ctx, filter, opts).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string, includeSecrets bool) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, includeSecrets)
}

func (r *mongoUserRepo) FindVerifiedByEmail(ctx context.Context, email string, includeSecrets bool) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "isVerified": true}, includeSecrets)
}

// FindPendingByEmail loads an unverified registration with its code fields.
func (r *mongoUserRepo) FindPendingByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "isVerified": false}, true)
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, false)
}

func (r *mongoUserRepo) FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, true)
}

func (r *mongoUserRepo) FindPublicByID(ctx context.Context, id primitive.ObjectID) (*models.PublicProfile, error) {
	opts := options.FindOne().SetProjection(bson.M{
		"name": 1, "avatar": 1, "bio": 1, "totalPosts": 1, "createdAt": 1, "isActive": 1,
	})
	var doc struct {
		models.PublicProfile `bson:",inline"`
		IsActive             bool `bson:"isActive"`
	}
	err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !doc.IsActive {
		return nil, ErrUserNotFound
	}
	return &doc.PublicProfile, nil
}

func (r *mongoUserRepo) FindAuthors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error) {
	out := make(map[primitive.ObjectID]models.AuthorInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1, "avatar": 1, "bio": 1})
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID     primitive.ObjectID `bson:"_id"`
		Name   string             `bson:"name"`
		Avatar string             `bson:"avatar"`
		Bio    string             `bson:"bio"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = models.AuthorInfo{ID: d.ID, Name: d.Name, Avatar: d.Avatar, Bio: d.Bio}
	}
	return out, nil
}

func (r *mongoUserRepo) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"resetPasswordToken":  hash,
		"resetPasswordExpire": bson.M{"$gt": now},
	}
	return r.findOne(ctx, filter, true)
}

func (r *mongoUserRepo) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	set, ok := update["$set"].(bson.M)
	if !ok {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepo) SetVerificationCode(ctx context.Context, id primitive.ObjectID, code int, expire time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"verificationCode":       code,
		"verificationCodeExpire": expire,
	}})
}

func (r *mongoUserRepo) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"isVerified": true},
		"$unset": bson.M{"verificationCode": "", "verificationCodeExpire": ""},
	})
}

func (r *mongoUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *mongoUserRepo) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"avatar": url}})
}

// SetPassword stores a new password hash and bumps tokenValidAfter so that
// previously issued session tokens stop verifying. Any outstanding reset
// token is cleared in the same atomic update.
func (r *mongoUserRepo) SetPassword(ctx context.Context, id primitive.ObjectID, hash string, validAfter time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "tokenValidAfter": validAfter},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
}

func (r *mongoUserRepo) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"resetPasswordToken":  hash,
		"resetPasswordExpire": expire,
	}})
}

func (r *mongoUserRepo) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
}

func (r *mongoUserRepo) IncTotalPosts(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.updateByID(ctx, id, bson.M{"$inc": bson.M{"totalPosts": delta}})
}

func (r *mongoUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
