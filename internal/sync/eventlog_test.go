package syncx_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/db"
	syncx "github.com/mind-engage/mindengage-grades/internal/sync"
)

func TestEventRepoRecordAndSince(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })

	repo := syncx.NewEventRepo(dbh, "")
	require.NoError(t, repo.Record(ctx, syncx.TypeModelSaved, "3", map[string]any{"modelId": 3, "version": 2}))
	require.NoError(t, repo.Record(ctx, syncx.TypeGradeAdded, "100", map[string]any{"taskId": 100}))
	require.NoError(t, repo.Append(ctx, syncx.Event{SiteID: "branch", Type: syncx.TypeGradeAdded, Key: "101", DataJSON: `{}`}))

	all, err := repo.Since(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, syncx.TypeModelSaved, all[0].Type)
	assert.Equal(t, "local", all[0].SiteID)
	assert.Equal(t, "branch", all[2].SiteID)
	assert.Less(t, all[0].Offset, all[1].Offset)

	var payload struct {
		ModelID int `json:"modelId"`
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(all[0].DataJSON), &payload))
	assert.Equal(t, 2, payload.Version)

	rest, err := repo.Since(ctx, all[0].Offset, 1)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "100", rest[0].Key)

	require.Error(t, repo.Record(ctx, syncx.TypeGradeAdded, "x", func() {}), "unmarshalable payload")
}
