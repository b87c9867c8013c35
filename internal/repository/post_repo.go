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

var ErrPostNotFound = errors.New("post not found")

// Sort keys accepted by List.
const (
	SortLatest      = "latest"
	SortPopular     = "popular"
	SortViews       = "views"
	SortDateAsc     = "date_asc"
	SortDateDesc    = "date_desc"
	SortPopularAsc  = "popular_asc"
	SortPopularDesc = "popular_desc"
)

// PostFilter narrows and orders a paginated post listing. Zero values
// are ignored.
type PostFilter struct {
	Tag    string
	Author primitive.ObjectID
	Search string
	Sort   string
	Page   int
	Limit  int
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, slug string, exclude primitive.ObjectID) (bool, error)
	List(ctx context.Context, f PostFilter) ([]models.Post, int64, error)
	Top(ctx context.Context, limit int) ([]models.Post, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	IncViewsBySlug(ctx context.Context, slug string) (*models.Post, error)
	IncLikes(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type mongoPostRepo struct {
	col *mongo.Collection
}

func NewMongoPostRepo(db *mongo.Database) PostRepository {
	col := db.Collection("posts")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "stats.views", Value: -1}}},
		{Keys: bson.D{{Key: "stats.likes", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "stats.views", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	return &mongoPostRepo{col: col}
}

func (r *mongoPostRepo) Create(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Tags == nil {
		p.Tags = []string{}
	}
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *mongoPostRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoPostRepo) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var p models.Post
	err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoPostRepo) SlugExists(ctx context.Context, slug string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"slug": slug}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func sortOption(sort string) bson.D {
	switch sort {
	case SortPopular:
		return bson.D{{Key: "stats.likes", Value: -1}}
	case SortViews, SortPopularDesc:
		return bson.D{{Key: "stats.views", Value: -1}}
	case SortPopularAsc:
		return bson.D{{Key: "stats.views", Value: 1}}
	case SortDateAsc:
		return bson.D{{Key: "createdAt", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (r *mongoPostRepo) List(ctx context.Context, f PostFilter) ([]models.Post, int64, error) {
	filter := bson.M{}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	if !f.Author.IsZero() {
		filter["author"] = f.Author
	}
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	opts := options.Find().
		SetSort(sortOption(f.Sort)).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *mongoPostRepo) Top(ctx context.Context, limit int) ([]models.Post, error) {
	if limit < 1 {
		limit = 5
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "stats.views", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"title": 1, "slug": 1, "stats.views": 1, "author": 1, "createdAt": 1})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *mongoPostRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *mongoPostRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// IncViewsBySlug bumps the view counter atomically and returns the post as
// it is after the increment. Concurrent readers never lose a count.
func (r *mongoPostRepo) IncViewsBySlug(ctx context.Context, slug string) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"slug": slug},
		bson.M{"$inc": bson.M{"stats.views": 1}},
		opts,
	).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoPostRepo) IncLikes(ctx context.Context, id primitive.ObjectID) (int64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stats.likes": 1}},
		opts,
	).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, err
	}
	return p.Stats.Likes, nil
}
