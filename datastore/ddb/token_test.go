/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	key := map[string]types.AttributeValue{
		"pk":  &types.AttributeValueMemberS{Value: "tenant-1"},
		"sk":  &types.AttributeValueMemberS{Value: "u1#p1"},
		"lsi": &types.AttributeValueMemberS{Value: "u1"},
		"n":   &types.AttributeValueMemberN{Value: "42"},
	}

	token, err := EncodeToken(key)
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	got, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestTokenEmpty(t *testing.T) {
	token, err := EncodeToken(nil)
	require.NoError(t, err)
	assert.Empty(t, token)

	key, err := DecodeToken("")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestTokenMalformed(t *testing.T) {
	_, err := DecodeToken("not a token")
	assert.Error(t, err)

	_, err = DecodeToken("aGVsbG8gd29ybGQ=")
	assert.Error(t, err, "valid base64, not a gob map")
}
