package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/catalog"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

type failingProgressRepo struct{ err error }

func (f *failingProgressRepo) Get(context.Context, string) (models.CompletionSet, error) {
	return nil, f.err
}

func (f *failingProgressRepo) Update(context.Context, string, func(models.CompletionSet) models.CompletionSet) (models.CompletionSet, error) {
	return nil, f.err
}

var twoLeafCurriculum = catalog.New([]models.Unit{
	{ID: "u1", SubUnits: []models.SubUnit{{ID: "s1"}, {ID: "s2"}}},
}, nil)

func newCompletionService(curriculum *catalog.Catalog) *CompletionService {
	students := &mockStudentRepo{students: []models.Student{{ID: "s1"}}}
	repo := repository.NewProgressRepository(kvstore.NewMemoryStore(), "")
	return NewCompletionService(repo, students, curriculum, nil, nil)
}

func TestCompletionServiceToggleOpensGate(t *testing.T) {
	svc := newCompletionService(twoLeafCurriculum)
	ctx := context.Background()

	status, err := svc.Toggle(ctx, "s1", ToggleCompletionRequest{LeafID: "u1/s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, status.CompletedCount)
	assert.InDelta(t, 0.5, status.Ratio, 1e-9)
	assert.False(t, status.GateOpen)
	assert.False(t, svc.GateOpen(ctx, "s1"))

	status, err = svc.Toggle(ctx, "s1", ToggleCompletionRequest{LeafID: "u1/s2"})
	require.NoError(t, err)
	assert.True(t, status.GateOpen)
	assert.Equal(t, 1.0, status.Ratio)
	assert.True(t, svc.GateOpen(ctx, "s1"))
}

func TestCompletionServiceToggleTwiceRestores(t *testing.T) {
	svc := newCompletionService(twoLeafCurriculum)
	ctx := context.Background()

	before, err := svc.Status(ctx, "s1")
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, "s1", ToggleCompletionRequest{LeafID: "u1/s1"})
	require.NoError(t, err)
	after, err := svc.Toggle(ctx, "s1", ToggleCompletionRequest{LeafID: "u1/s1"})
	require.NoError(t, err)

	assert.Equal(t, before.Completed.Slice(), after.Completed.Slice())
	assert.Equal(t, 0, after.CompletedCount)
}

func TestCompletionServiceRejectsUnknownLeaf(t *testing.T) {
	svc := newCompletionService(twoLeafCurriculum)

	for _, leaf := range []string{"", "  ", "u9/s9"} {
		_, err := svc.Toggle(context.Background(), "s1", ToggleCompletionRequest{LeafID: leaf})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCompletionServiceUnknownStudent(t *testing.T) {
	svc := newCompletionService(twoLeafCurriculum)

	_, err := svc.Toggle(context.Background(), "ghost", ToggleCompletionRequest{LeafID: "u1/s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Status(context.Background(), "ghost")
	require.Error(t, err)
}

func TestCompletionServiceEmptyCatalogKeepsGateClosed(t *testing.T) {
	svc := newCompletionService(catalog.Empty())
	ctx := context.Background()

	status, err := svc.Toggle(ctx, "s1", ToggleCompletionRequest{LeafID: "anything"})
	require.NoError(t, err)
	assert.True(t, status.Completed.Has("anything"))
	assert.Equal(t, 0, status.TotalLeaves)
	assert.False(t, status.GateOpen)
	assert.False(t, svc.GateOpen(ctx, "s1"))
}

func TestCompletionServiceStoreFailure(t *testing.T) {
	students := &mockStudentRepo{students: []models.Student{{ID: "s1"}}}
	svc := NewCompletionService(&failingProgressRepo{err: errors.New("down")}, students, twoLeafCurriculum, nil, nil)

	status, err := svc.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, status.CompletedCount)
	assert.False(t, svc.GateOpen(context.Background(), "s1"))

	_, err = svc.Toggle(context.Background(), "s1", ToggleCompletionRequest{LeafID: "u1/s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
