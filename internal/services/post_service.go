package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AK-GUPTA-20/blog-backend/internal/models"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type postService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *zap.SugaredLogger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *zap.Logger) PostService {
	return &postService{posts: posts, users: users, logger: logger.Sugar()}
}

// makeSlug derives a URL slug from the title, appending a timestamp suffix
// when the plain slug is already taken.
func (s *postService) makeSlug(ctx context.Context, title string, exclude primitive.ObjectID) (string, error) {
	candidate := slug.Make(title)
	exists, err := s.posts.SlugExists(ctx, candidate, exclude)
	if err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		candidate = fmt.Sprintf("%s-%d", candidate, time.Now().UnixMilli())
	}
	return candidate, nil
}

func (s *postService) Create(ctx context.Context, author primitive.ObjectID, title, content string, tags []string) (*models.Post, error) {
	postSlug, err := s.makeSlug(ctx, title, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       strings.TrimSpace(title),
		Slug:        postSlug,
		Content:     content,
		Author:      author,
		Tags:        cleanTags(tags),
		PublishedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := s.users.IncTotalPosts(ctx, author, 1); err != nil {
		s.logger.Warnw("failed to increment author post count", "author", author.Hex(), "error", err)
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, f repository.PostFilter) ([]models.PostView, int64, error) {
	posts, total, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	views, err := s.withAuthors(ctx, posts, false)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetBySlug returns one post, counting the view atomically.
func (s *postService) GetBySlug(ctx context.Context, postSlug string) (*models.PostView, error) {
	post, err := s.posts.IncViewsBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	views, err := s.withAuthors(ctx, []models.Post{*post}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *postService) Top(ctx context.Context, limit int) ([]models.PostView, error) {
	posts, err := s.posts.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top posts: %w", err)
	}
	return s.withAuthors(ctx, posts, false)
}

func (s *postService) Update(ctx context.Context, actor, id primitive.ObjectID, title, content *string, tags []string) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author != actor {
		return nil, ErrForbidden
	}

	set := bson.M{}
	if title != nil && *title != "" && *title != post.Title {
		newSlug, err := s.makeSlug(ctx, *title, post.ID)
		if err != nil {
			return nil, err
		}
		set["title"] = strings.TrimSpace(*title)
		set["slug"] = newSlug
	}
	if content != nil && *content != "" {
		set["content"] = *content
	}
	if tags != nil {
		set["tags"] = cleanTags(tags)
	}

	if len(set) > 0 {
		if err := s.posts.Update(ctx, id, set); err != nil {
			return nil, fmt.Errorf("failed to update post: %w", err)
		}
	}
	return s.posts.FindByID(ctx, id)
}

func (s *postService) Delete(ctx context.Context, actor, id primitive.ObjectID) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post.Author != actor {
		return ErrForbidden
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if err := s.users.IncTotalPosts(ctx, post.Author, -1); err != nil {
		s.logger.Warnw("failed to decrement author post count", "author", post.Author.Hex(), "error", err)
	}
	return nil
}

func (s *postService) Like(ctx context.Context, id primitive.ObjectID) (int64, error) {
	return s.posts.IncLikes(ctx, id)
}

// withAuthors decorates posts with their authors' public info in one
// batched lookup. Bio is only exposed on single-post views.
func (s *postService) withAuthors(ctx context.Context, posts []models.Post, withBio bool) ([]models.PostView, error) {
	ids := make([]primitive.ObjectID, 0, len(posts))
	seen := make(map[primitive.ObjectID]bool, len(posts))
	for _, p := range posts {
		if !seen[p.Author] {
			seen[p.Author] = true
			ids = append(ids, p.Author)
		}
	}

	authors, err := s.users.FindAuthors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load post authors: %w", err)
	}

	views := make([]models.PostView, len(posts))
	for i, p := range posts {
		views[i] = models.PostView{Post: p}
		info, ok := authors[p.Author]
		if !ok {
			// deleted author: the post stays, only the id survives
			info = models.AuthorInfo{ID: p.Author}
		}
		if !withBio {
			info.Bio = ""
		}
		views[i].Author = &info
	}
	return views, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
