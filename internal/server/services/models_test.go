package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelService_Create(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	s := NewModelService(db, rm, &fakePresigner{})
	ctx := context.Background()

	m, err := s.Create(ctx, "u1", "  Me  ", "ohwx")
	require.NoError(t, err)
	assert.Equal(t, "Me", m.Name)
	assert.Equal(t, models.AIModelCreated, m.Status)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	for _, tc := range []struct{ name, trigger string }{
		{"", "ohwx"},
		{strings.Repeat("x", 101), "ohwx"},
		{"Me", ""},
		{"Me", "two words"},
	} {
		_, err := s.Create(ctx, "u1", tc.name, tc.trigger)
		assert.ErrorIs(t, err, common.ErrInvalidRequest, "name=%q trigger=%q", tc.name, tc.trigger)
	}
}

func TestModelService_UploadURL(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.models = newFakeAIModels(
		&models.AIModel{ID: "m1", UserID: "u1", Status: models.AIModelCreated},
		&models.AIModel{ID: "m2", UserID: "u1", Status: models.AIModelTraining},
		&models.AIModel{ID: "m3", UserID: "u1", LoraWeights: strPtr("w"), Status: models.AIModelTrained},
	)
	s := NewModelService(db, rm, &fakePresigner{})
	ctx := context.Background()

	target, err := s.UploadURL(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target.Key, "users/u1/models/m1/images-"))
	assert.Equal(t, "https://s3/put/"+target.Key, target.URL)
	require.NotNil(t, rm.models.get("m1").ImagesKey)
	assert.Equal(t, target.Key, *rm.models.get("m1").ImagesKey)

	_, err = s.UploadURL(ctx, "u2", "m1")
	assert.ErrorIs(t, err, common.ErrSubjectNotFound)
	_, err = s.UploadURL(ctx, "u1", "m2")
	assert.ErrorIs(t, err, common.ErrSubjectNotReady)
	_, err = s.UploadURL(ctx, "u1", "m3")
	assert.ErrorIs(t, err, common.ErrSubjectNotReady)
}

func TestModelService_UploadURL_PresignFailure(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.models = newFakeAIModels(&models.AIModel{ID: "m1", UserID: "u1", Status: models.AIModelCreated})
	s := NewModelService(db, rm, &fakePresigner{err: errBoom{}})

	_, err := s.UploadURL(context.Background(), "u1", "m1")
	require.Error(t, err)
	assert.Nil(t, rm.models.get("m1").ImagesKey, "key must not change when presigning fails")
}
