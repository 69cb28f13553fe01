package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealready/internal/assessment"
)

func sampleRun(moduleID string) *assessment.Run {
	run := assessment.NewRun(moduleID)
	run.Set("q1", assessment.SingleSelect{Option: "yes"})
	run.Set("q2", assessment.MultiSelect{Options: []string{"a", "b"}})
	run.Set("q3", assessment.Numeric{Number: 12.5})
	run.Cursor = 2
	return run
}

// exerciseStore runs the shared contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	missing, err := s.Load(ctx, Key("absent"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	first := sampleRun("alpha")
	require.NoError(t, s.Save(ctx, Key("alpha"), first))
	require.NoError(t, s.Save(ctx, Key("beta"), sampleRun("beta")))

	second := first.Clone()
	second.Set("q1", assessment.SingleSelect{Option: "no"})
	second.Complete(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, Key("alpha"), second))
	require.NoError(t, s.Save(ctx, Key("alpha"), second), "saving twice overwrites")

	loaded, err := s.Load(ctx, Key("alpha"))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, second.ID, loaded.ID)
	assert.Equal(t, second.Values(), loaded.Values())
	assert.True(t, loaded.IsComplete())
	assert.Equal(t, 2, loaded.Cursor)

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, Key("alpha"), all[0].Key)
	assert.Equal(t, Key("beta"), all[1].Key)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryFailSaves(t *testing.T) {
	m := NewMemory()
	m.FailSaves(errors.New("offline"))
	err := m.Save(context.Background(), Key("x"), sampleRun("x"))
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "save", se.Op)
	assert.Equal(t, Key("x"), se.Key)

	m.FailSaves(nil)
	require.NoError(t, m.Save(context.Background(), Key("x"), sampleRun("x")))
	assert.Equal(t, 2, m.Saves())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state", "runs.sqlite"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteSaveFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectQuery("SELECT run_json FROM runs").WithArgs(Key("alpha")).WillReturnError(errors.New("database is locked"))

	s, err := NewSQLite(db)
	require.NoError(t, err)

	err = s.Save(context.Background(), Key("alpha"), sampleRun("alpha"))
	var se *StorageError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "save", se.Op)
	assert.Contains(t, err.Error(), "disk I/O error")

	_, err = s.Load(context.Background(), Key("alpha"))
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "load", se.Op)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteLoadMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT run_json FROM runs").WillReturnRows(sqlmock.NewRows([]string{"run_json"}))

	s, err := NewSQLite(db)
	require.NoError(t, err)
	run, err := s.Load(context.Background(), Key("alpha"))
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSQLiteSchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))

	_, err = NewSQLite(db)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "open", se.Op)
}

func TestRedisStoreInProcess(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()
	s, err := OpenRedis(ctx, srv.Addr(), "", 0, "dealready:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, srv.Set("other:"+Key("gamma"), "not a run"))
	exerciseStore(t, s)
	assert.True(t, srv.Exists("dealready:"+Key("alpha")))

	srv.SetError("ERR backend unavailable")
	err = s.Save(ctx, Key("alpha"), sampleRun("alpha"))
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "save", se.Op)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("DEALREADY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DEALREADY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := "dealready-test:" + assessment.NewRun("x").ID + ":"
	s, err := OpenRedis(ctx, addr, "", 0, prefix)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("DEALREADY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DEALREADY_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := OpenMongo(ctx, uri, "dealready_test_"+time.Now().UTC().Format("20060102150405"))
	require.NoError(t, err)
	defer func() {
		_ = s.collection.Database().Drop(ctx)
		s.Close()
	}()
	exerciseStore(t, s)
}

func TestKeyRoundTrip(t *testing.T) {
	module, ok := ModuleFromKey(Key("deal-killers"))
	require.True(t, ok)
	assert.Equal(t, "deal-killers", module)
	_, ok = ModuleFromKey("other/deal-killers")
	assert.False(t, ok)
}
