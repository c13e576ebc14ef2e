/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import (
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/registry"
)

func TestRegistered(t *testing.T) {
	d, err := registry.Lookup[BlogPost]()
	require.NoError(t, err)
	assert.Equal(t, BlogPostDescriptor, d)

	d, err = registry.Lookup[Comment]()
	require.NoError(t, err)
	assert.True(t, d.HasIndex)

	e, err := registry.ByTable("Users")
	require.NoError(t, err)
	assert.Equal(t, "models.User", e.Type.String())
}

func TestKeysDerivation(t *testing.T) {
	user := NewUser("tenant-1", "Ada")
	post := NewBlogPost("tenant-1", user.ID, "Hello", "First post")
	comment := NewComment(post.ID, user.ID, "Nice")

	k, err := UserDescriptor.Codec().Derive(user.Identity())
	require.NoError(t, err)
	assert.Equal(t, keys.Keys{PK: "tenant-1", SK: user.ID.String()}, k)

	k, err = BlogPostDescriptor.Codec().Derive(post.Identity())
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", k.PK)
	assert.Equal(t, user.ID.String()+"#"+post.ID.String(), k.SK)
	assert.Empty(t, k.LSI)

	k, err = CommentDescriptor.Codec().Derive(comment.Identity())
	require.NoError(t, err)
	assert.Equal(t, keys.Keys{PK: post.ID.String(), SK: comment.ID.String(), LSI: user.ID.String()}, k)
}

func TestValidate(t *testing.T) {
	user := NewUser("tenant-1", "Ada")
	require.NoError(t, Validate(user))
	assert.True(t, strfmt.IsUUID(user.ID.String()))

	user.ID = "not-a-uuid"
	assert.Error(t, Validate(user))

	post := NewBlogPost("tenant-1", NewUser("tenant-1", "Bob").ID, "", "")
	assert.Error(t, Validate(post), "title is required")
}
