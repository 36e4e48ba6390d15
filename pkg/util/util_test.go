package util

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRandBase36(t *testing.T) {
	s := RandBase36(6)
	assert.Len(t, s, 6)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]{6}$`), s)
	assert.NotEqual(t, s, RandBase36(6))
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("AW_INT", "42")
	t.Setenv("AW_BOOL", "true")
	t.Setenv("AW_DUR", "90s")
	t.Setenv("AW_BAD_DUR", "soon")

	assert.Equal(t, int64(42), GetIntEnv("AW_INT"))
	assert.Equal(t, int64(7), GetIntEnvOr("AW_MISSING", 7))
	assert.True(t, GetBoolEnv("AW_BOOL"))
	assert.False(t, GetBoolEnv("AW_MISSING"))
	assert.Equal(t, 90*time.Second, GetDurationEnv("AW_DUR", time.Second))
	assert.Equal(t, time.Second, GetDurationEnv("AW_BAD_DUR", time.Second))
	assert.Equal(t, "fallback", GetEnvOr("AW_MISSING", "fallback"))
}

func TestInitDatabaseDefaultsToSQLiteMemory(t *testing.T) {
	db, err := InitDatabase("", "", false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

type uniqueHandle struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func TestInitDatabaseTranslatesDuplicateKey(t *testing.T) {
	db, err := InitDatabase("sqlite", "", false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&uniqueHandle{}))

	require.NoError(t, db.Create(&uniqueHandle{Name: "meera"}).Error)
	err = db.Create(&uniqueHandle{Name: "meera"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestHashSlot(t *testing.T) {
	// XMODEM 标准校验值
	assert.Equal(t, uint16(0x31C3), CRC16([]byte("123456789")))

	assert.Equal(t, HashSlot("viewer-1"), HashSlot("viewer-1"))
	assert.Equal(t, HashSlot("{officer-7}:tab1"), HashSlot("{officer-7}:tab2"))
	assert.Equal(t, HashSlot("{}x"), HashSlot("{}x"))
	for _, k := range []string{"", "a", "{", "anonymous"} {
		s := HashSlot(k)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, SlotCount)
	}
}
