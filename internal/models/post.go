package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStats struct {
	Views         int64 `bson:"views" json:"views"`
	Likes         int64 `bson:"likes" json:"likes"`
	CommentsCount int64 `bson:"commentsCount" json:"commentsCount"`
}

// Post is a published blog entry, addressed publicly by slug.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Content     string             `bson:"content" json:"content"`
	Author      primitive.ObjectID `bson:"author" json:"author"`
	Tags        []string           `bson:"tags" json:"tags"`
	PublishedAt time.Time          `bson:"publishedAt" json:"publishedAt"`
	Stats       PostStats          `bson:"stats" json:"stats"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PostView decorates a post with its author's public info for responses.
// The outer Author field shadows Post.Author in the JSON output.
type PostView struct {
	Post
	Author *AuthorInfo `json:"author,omitempty"`
}
