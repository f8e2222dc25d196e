package status

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbake/ezbake-image-frack/common/blob"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

func newTestTracker(t *testing.T) (*Tracker, *blob.Store) {
	rows, err := store.NewMemoryStore("ImageStore", 0)
	require.NoError(t, err)
	blobs, err := blob.New(rows)
	require.NoError(t, err)
	return NewTracker(blobs), blobs
}

func TestGetStatusMissRowReturnsEmpty(t *testing.T) {
	tracker, _ := newTestTracker(t)

	status, err := tracker.GetStatus(context.Background(), []byte("unknown"), store.Authorizations{"U"})
	require.NoError(t, err)
	assert.Empty(t, status.CompletedStages)
	assert.False(t, status.Completed)
}

func TestStageAccumulationAnyOrder(t *testing.T) {
	orders := [][]Stage{
		{StageExtracted, StageBinarySaved, StageDispatched, StageThumbnailsGenerated, StageMetadataExtracted},
		{StageMetadataExtracted, StageThumbnailsGenerated, StageDispatched, StageBinarySaved, StageExtracted},
		{StageThumbnailsGenerated, StageExtracted, StageMetadataExtracted, StageDispatched, StageBinarySaved},
	}

	for _, order := range orders {
		tracker, _ := newTestTracker(t)
		ctx := context.Background()
		row := []byte("img")
		auths := store.Authorizations{"U"}

		for i, stage := range order {
			require.NoError(t, tracker.AddCompletedStage(ctx, row, "U", auths, stage))

			status, err := tracker.GetStatus(ctx, row, auths)
			require.NoError(t, err)
			assert.Len(t, status.CompletedStages, i+1)
			assert.Equal(t, i == len(order)-1, status.Completed)
		}

		final, err := tracker.GetStatus(ctx, row, auths)
		require.NoError(t, err)
		for _, stage := range AllStages {
			assert.True(t, final.Has(stage), "stage %s", stage)
		}
	}
}

func TestDuplicateStageSuppressed(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	row := []byte("img")
	auths := store.Authorizations{"U"}

	require.NoError(t, tracker.AddCompletedStage(ctx, row, "U", auths, StageExtracted))
	require.NoError(t, tracker.AddCompletedStage(ctx, row, "U", auths, StageExtracted))

	status, err := tracker.GetStatus(ctx, row, auths)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageExtracted}, status.CompletedStages)
	assert.False(t, status.Completed)
}

func TestIncompleteUntilAllStages(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	row := []byte("img")
	auths := store.Authorizations{"U"}

	for _, stage := range AllStages[:len(AllStages)-1] {
		require.NoError(t, tracker.AddCompletedStage(ctx, row, "U", auths, stage))
		status, err := tracker.GetStatus(ctx, row, auths)
		require.NoError(t, err)
		assert.False(t, status.Completed)
	}

	require.NoError(t, tracker.AddCompletedStage(ctx, row, "U", auths, AllStages[len(AllStages)-1]))
	status, err := tracker.GetStatus(ctx, row, auths)
	require.NoError(t, err)
	assert.True(t, status.Completed)
}

// The tracker is read-modify-write over the whole record with no
// compare-and-swap: a writer holding a stale read overwrites everything a
// concurrent writer recorded. This pins down the last-writer-wins seam
// instead of masking it.
func TestLastWriterWinsOnFullRecord(t *testing.T) {
	tracker, blobs := newTestTracker(t)
	ctx := context.Background()
	row := []byte("img")
	auths := store.Authorizations{"U"}

	require.NoError(t, tracker.AddCompletedStage(ctx, row, "U", auths, StageExtracted))

	// a concurrent writer that read the row before StageExtracted landed
	// persists its own view of the record
	stale, err := json.Marshal(&Status{CompletedStages: []Stage{StageBinarySaved}})
	require.NoError(t, err)
	require.NoError(t, blobs.Write(ctx, row, Family, stale, "U"))

	status, err := tracker.GetStatus(ctx, row, auths)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageBinarySaved}, status.CompletedStages)
	assert.False(t, status.Has(StageExtracted))
}

func TestStatusVisibilityScoped(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	row := []byte("img")

	require.NoError(t, tracker.AddCompletedStage(ctx, row, "TS", store.Authorizations{"TS"}, StageExtracted))

	// a narrower caller sees an empty record, not an error
	status, err := tracker.GetStatus(ctx, row, store.Authorizations{"U"})
	require.NoError(t, err)
	assert.Empty(t, status.CompletedStages)
}
