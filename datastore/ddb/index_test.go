/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb_test

import (
	"context"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/tablestore/datastore/ddb"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/models"
)

func comment(postID, userID, id string) models.Comment {
	return models.Comment{
		ID:         strfmt.UUID(id),
		BlogPostID: strfmt.UUID(postID),
		UserID:     strfmt.UUID(userID),
		Text:       "text " + id,
		CreatedAt:  fixedTime,
	}
}

func TestNewIndexedStoreRequiresIndex(t *testing.T) {
	_, err := ddb.NewIndexedStore[models.BlogPost](newClient(t), models.BlogPostDescriptor)
	assert.True(t, storeerrors.IsNoIndex(err))

	_, err = ddb.NewIndexedStore[models.User](newClient(t), models.UserDescriptor)
	assert.ErrorIs(t, err, storeerrors.ErrNoIndex)
}

func TestGetByIndex(t *testing.T) {
	ctx := context.Background()
	comments, err := ddb.NewIndexedStore[models.Comment](newClient(t), models.CommentDescriptor)
	require.NoError(t, err)

	for _, c := range []models.Comment{
		comment("p1", "u2", "c1"),
		comment("p1", "u1", "c3"),
		comment("p1", "u1", "c2"),
		comment("p2", "u1", "c4"),
	} {
		_, err := comments.Create(ctx, c)
		require.NoError(t, err)
	}

	got, err := comments.GetByIndex(ctx, "p1", "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, strfmt.UUID("c2"), got[0].ID)
	assert.Equal(t, strfmt.UUID("c3"), got[1].ID)

	got, err = comments.GetByIndex(ctx, "p1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = comments.GetByIndex(ctx, "p1", "")
	assert.True(t, storeerrors.IsValidationError(err))

	all, err := comments.GetByPartition(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
