package db

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtlecrossing/internal/db/dbtest"
	"turtlecrossing/internal/voting"
)

func TestSeedVoteReasons(t *testing.T) {
	gdb, engine := dbtest.NewSite(t, clockwork.NewFakeClock())
	ctx := t.Context()

	require.NoError(t, SeedVoteReasons(ctx, gdb, engine.Reasons()))
	reasons, err := engine.Reasons().GetForType(ctx, "story")
	require.NoError(t, err)
	var got []string
	for _, r := range reasons {
		got = append(got, r.Description())
	}
	assert.Equal(t, []string{"+1 Insightful", "+1 Interesting", "-1 Off-topic", "-1 Spam"}, got)

	// Seeding twice does nothing.
	require.NoError(t, SeedVoteReasons(ctx, gdb, engine.Reasons()))
	var count int64
	require.NoError(t, gdb.Model(&voting.VoteReason{}).Count(&count).Error)
	assert.EqualValues(t, len(defaultReasons), count)
}

func TestMigrate(t *testing.T) {
	gdb := dbtest.New(t)
	engine, err := voting.NewEngine(gdb)
	require.NoError(t, err)

	require.NoError(t, Migrate(gdb, engine))
	for _, table := range []string{"users", "stories", "comments", "karma_logs", "votes", "vote_reasons"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
}
