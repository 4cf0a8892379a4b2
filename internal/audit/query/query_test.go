package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/store/memory"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

func seed(t *testing.T, store *memory.Store, records ...audit.Record) {
	t.Helper()
	require.NoError(t, store.AppendBatch(context.Background(), records))
}

func TestService_Search(t *testing.T) {
	store := memory.New()
	svc, err := New(store)
	require.NoError(t, err)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	seed(t, store,
		audit.Record{Action: "view_patient", ActorID: "u1", CreatedAt: base},
		audit.Record{Action: "view_patient", ActorID: "u2", CreatedAt: base.Add(time.Minute)},
		audit.Record{Action: "update_patient", ActorID: "u1", CreatedAt: base.Add(2 * time.Minute)},
	)

	t.Run("filters by actor", func(t *testing.T) {
		records, err := svc.Search(context.Background(), audit.Criteria{ActorID: "u1"})
		require.NoError(t, err)
		require.Len(t, records, 2)
	})

	t.Run("most recent first", func(t *testing.T) {
		records, err := svc.Search(context.Background(), audit.Criteria{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "update_patient", records[0].Action)
	})

	t.Run("no matches is empty, not an error", func(t *testing.T) {
		records, err := svc.Search(context.Background(), audit.Criteria{ActorID: "nobody"})
		require.NoError(t, err)
		require.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		_, err := svc.Search(context.Background(), audit.Criteria{
			StartDate: base,
			EndDate:   base.Add(-time.Hour),
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("negative pagination rejected", func(t *testing.T) {
		_, err := svc.Search(context.Background(), audit.Criteria{Limit: -1})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestService_SearchWrapsStoreFailure(t *testing.T) {
	store := memory.New()
	svc, err := New(store)
	require.NoError(t, err)

	store.FailNextSearch(errors.New("store offline"))
	_, err = svc.Search(context.Background(), audit.Criteria{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeQueryFailed))
}

func TestService_Window(t *testing.T) {
	store := memory.New()
	svc, err := New(store)
	require.NoError(t, err)

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	seed(t, store,
		audit.Record{Action: "a", CreatedAt: base.Add(2 * time.Hour)},
		audit.Record{Action: "b", CreatedAt: base},
		audit.Record{Action: "c", CreatedAt: base.Add(time.Hour)},
		audit.Record{Action: "outside", CreatedAt: base.Add(48 * time.Hour)},
	)

	records, err := svc.Window(context.Background(), base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "b", records[0].Action, "window is ascending by creation time")
	assert.Equal(t, "a", records[2].Action)
}
