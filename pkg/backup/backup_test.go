package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type row struct {
	ID   uint
	Name string
}

func TestExecuteSnapshotsAndPrunes(t *testing.T) {
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "live.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "asha"}).Error)

	b := New(db, Config{Driver: "sqlite", Dir: filepath.Join(dir, "bk"), Keep: 2})
	base := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	var paths []string
	for i := 0; i < 3; i++ {
		b.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		p, err := b.Execute(context.Background())
		require.NoError(t, err)
		paths = append(paths, p)
	}

	_, err = os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(filepath.Join(dir, "bk"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	snap, err := gorm.Open(sqlite.Open(paths[2]), &gorm.Config{})
	require.NoError(t, err)
	var got row
	require.NoError(t, snap.First(&got).Error)
	assert.Equal(t, "asha", got.Name)
}

func TestExecuteRejectsOtherDrivers(t *testing.T) {
	b := New(nil, Config{Driver: "mysql", Dir: t.TempDir()})
	_, err := b.Execute(context.Background())
	assert.Error(t, err)
}
