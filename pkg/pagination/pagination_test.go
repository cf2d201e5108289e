package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestCursorEncodeDecode(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.FixedZone("AMM", 3*3600)), ID: uuid.New()}
	out, err := Decode(in.Encode())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, time.UTC, out.CreatedAt.Location())
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeBlankAndGarbage(t *testing.T) {
	c, err := Decode("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, token := range []string{
		"not base64!",
		base64.RawURLEncoding.EncodeToString([]byte("[]")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2026-01-01T00:00:00Z"}`)),
	} {
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, Params{}.Size())
	assert.Equal(t, DefaultLimit, Params{Limit: -3}.Size())
	assert.Equal(t, 7, Params{Limit: 7}.Size())
	assert.Equal(t, MaxLimit, Params{Limit: MaxLimit * 5}.Size())
}

type row struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	CreatedAt time.Time
}

func keyOf(r row) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

func TestSeekWalksEveryRowOnce(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:page_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&row{}))

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seeded := map[uuid.UUID]bool{}
	for i := range 7 {
		// pairs share a timestamp so the id tiebreak is exercised
		r := row{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i/2) * time.Minute)}
		require.NoError(t, conn.Create(&r).Error)
		seeded[r.ID] = true
	}

	seen := map[uuid.UUID]bool{}
	params := Params{Limit: 3}
	pages := 0
	for {
		q, err := Seek(conn.Model(&row{}), params)
		require.NoError(t, err)
		var rows []row
		require.NoError(t, q.Find(&rows).Error)

		page, next := Cut(rows, params, keyOf)
		pages++
		for _, r := range page {
			assert.False(t, seen[r.ID], "row repeated across pages")
			seen[r.ID] = true
		}
		if next == "" {
			break
		}
		params.Cursor = next
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, seeded, seen)
}

func TestSeekRejectsBadCursor(t *testing.T) {
	_, err := Seek(&gorm.DB{}, Params{Cursor: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCutLastPage(t *testing.T) {
	rows := []row{{ID: uuid.New()}, {ID: uuid.New()}}
	page, next := Cut(rows, Params{Limit: 2}, keyOf)
	assert.Len(t, page, 2)
	assert.Empty(t, next)
}
