package voting

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// cheese allows downvotes and keeps two scores.
type cheese struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	Optimistic  int
	Pessimistic int
}

func (cheese) TableName() string { return "cheeses" }

func (c *cheese) VotableType() string { return "cheese" }
func (c *cheese) VotableID() uint { return c.ID }

func (c *cheese) ComputeScore(name string, up, down int) (int, error) {
	switch name {
	case "optimistic":
		return 1 + 2*up - down, nil
	case "pessimistic":
		return 1 + up - 2*down, nil
	}
	return 0, fmt.Errorf("unknown score %q", name)
}

func (c *cheese) SetScore(name string, value int) error {
	switch name {
	case "optimistic":
		c.Optimistic = value
	case "pessimistic":
		c.Pessimistic = value
	default:
		return fmt.Errorf("unknown score %q", name)
	}
	return nil
}

// catPicture is upvote-only.
type catPicture struct {
	ID        uint `gorm:"primaryKey"`
	Caption   string
	VoteCount int
}

func (c *catPicture) VotableType() string { return "cat_picture" }
func (c *catPicture) VotableID() uint { return c.ID }

func (c *catPicture) ComputeUpvoteScore(name string, up int) (int, error) {
	return up, nil
}

func (c *catPicture) SetScore(name string, value int) error {
	c.VoteCount = value
	return nil
}

// plainItem has no score capability.
type plainItem struct{ id uint }

func (p *plainItem) VotableType() string { return "plain" }
func (p *plainItem) VotableID() uint { return p.id }

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db      *gorm.DB
	engine  *Engine
	clock   *clockwork.FakeClock
	queries *atomic.Int64
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T, opts ...EngineOption) *testEnv {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&cheese{}, &catPicture{}))

	var queries atomic.Int64
	err := db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		queries.Add(1)
	})
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(testStart)
	engine, err := NewEngine(db, append([]EngineOption{WithClock(clock)}, opts...)...)
	require.NoError(t, err)

	require.NoError(t, engine.Register(Must(New(&cheese{}, Scores("optimistic", "pessimistic")))))
	require.NoError(t, engine.Register(Must(New(&catPicture{}, DisallowDownvotes(), Score("vote_count")))))
	require.NoError(t, engine.Migrate())

	return &testEnv{db: db, engine: engine, clock: clock, queries: &queries}
}

func (e *testEnv) cheese(t *testing.T, name string) *cheese {
	t.Helper()
	c := &cheese{Name: name}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) cat(t *testing.T, caption string) *catPicture {
	t.Helper()
	c := &catPicture{Caption: caption}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) votes(t *testing.T, item Item) *Votes {
	t.Helper()
	v, err := e.engine.Votes(item)
	require.NoError(t, err)
	return v
}

func (e *testEnv) reason(t *testing.T, contentType string, dir Direction, text string) *VoteReason {
	t.Helper()
	r := &VoteReason{ContentType: contentType, Direction: int8(dir), Reason: text}
	require.NoError(t, e.engine.Reasons().Save(t.Context(), r))
	return r
}
