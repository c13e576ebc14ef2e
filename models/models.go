/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// Descriptors of the sample entity types.
var (
	UserDescriptor = datastore.Descriptor{
		TableName: "Users",
		Shape:     keys.PlainSortKey,
	}
	BlogPostDescriptor = datastore.Descriptor{
		TableName: "BlogPosts",
		Shape:     keys.CompositeSortKey,
	}
	CommentDescriptor = datastore.Descriptor{
		TableName: "Comments",
		Shape:     keys.PlainSortKey,
		HasIndex:  true,
	}
)

func init() {
	registry.Register[User](UserDescriptor)
	registry.Register[BlogPost](BlogPostDescriptor)
	registry.Register[Comment](CommentDescriptor)
}

var validate = validator.New()

// Validate checks the struct tags of a model.
func Validate(v any) error {
	return validate.Struct(v)
}

func newID() strfmt.UUID {
	return strfmt.UUID(uuid.NewString())
}

// User is a member of a tenant. Users are stored one partition per tenant.
type User struct {
	ID        strfmt.UUID `dynamodbav:"ID" json:"id" validate:"required,uuid"`
	TenantID  string      `dynamodbav:"TenantID" json:"tenantId" validate:"required,excludes=#"`
	Name      string      `dynamodbav:"Name" json:"name" validate:"required"`
	CreatedAt time.Time   `dynamodbav:"CreatedAt" json:"createdAt"`
}

// NewUser creates a user with a fresh id.
func NewUser(tenantID, name string) User {
	return User{
		ID:        newID(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

func (u User) Identity() keys.Identity {
	return keys.Identity{Partition: u.TenantID, ID: u.ID.String()}
}

// BlogPost is written by a user of a tenant. Its sort key is "{UserID}#{ID}", so
// keys.OwnerPrefix(userID) selects every post of one author.
type BlogPost struct {
	ID        strfmt.UUID             `dynamodbav:"ID" json:"id" validate:"required,uuid"`
	TenantID  string                  `dynamodbav:"TenantID" json:"tenantId" validate:"required"`
	UserID    strfmt.UUID             `dynamodbav:"UserID" json:"userId" validate:"required,uuid"`
	Title     string                  `dynamodbav:"Title" json:"title" validate:"required"`
	Content   string                  `dynamodbav:"Content" json:"content"`
	Rating    storagemodels.Aggregate `dynamodbav:"Rating" json:"rating"`
	CreatedAt time.Time               `dynamodbav:"CreatedAt" json:"createdAt"`
}

// NewBlogPost creates a post with a fresh id and an empty rating.
func NewBlogPost(tenantID string, userID strfmt.UUID, title, content string) BlogPost {
	return BlogPost{
		ID:        newID(),
		TenantID:  tenantID,
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func (p BlogPost) Identity() keys.Identity {
	return keys.Identity{Partition: p.TenantID, Owner: p.UserID.String(), ID: p.ID.String()}
}

// Comment belongs to a post. Comments of one post are indexed by author.
type Comment struct {
	ID         strfmt.UUID `dynamodbav:"ID" json:"id" validate:"required,uuid"`
	BlogPostID strfmt.UUID `dynamodbav:"BlogPostID" json:"blogPostId" validate:"required,uuid"`
	UserID     strfmt.UUID `dynamodbav:"UserID" json:"userId" validate:"required,uuid"`
	Text       string      `dynamodbav:"Text" json:"text" validate:"required"`
	CreatedAt  time.Time   `dynamodbav:"CreatedAt" json:"createdAt"`
}

// NewComment creates a comment with a fresh id.
func NewComment(postID, userID strfmt.UUID, text string) Comment {
	return Comment{
		ID:         newID(),
		BlogPostID: postID,
		UserID:     userID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
}

func (c Comment) Identity() keys.Identity {
	return keys.Identity{Partition: c.BlogPostID.String(), Owner: c.UserID.String(), ID: c.ID.String()}
}
