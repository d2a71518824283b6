package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	trustmodels "veil/internal/trust/models"
)

type PolicySuite struct {
	suite.Suite
	engine *Engine
	now    time.Time
}

func (s *PolicySuite) SetupTest() {
	s.engine = NewEngine(DefaultTable())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) TestPersonaCreationTiers() {
	cases := []struct {
		level trustmodels.Level
		max   int
	}{
		{trustmodels.LevelNew, 3},
		{trustmodels.LevelRegular, 5},
		{trustmodels.LevelTrusted, 10},
	}
	for _, tc := range cases {
		s.Run(string(tc.level), func() {
			under := Context{TrustLevel: tc.level, CurrentCount: tc.max - 1}
			at := Context{TrustLevel: tc.level, CurrentCount: tc.max}

			s.True(s.engine.Evaluate(PersonaCreationAllowed, under))
			s.False(s.engine.Evaluate(PersonaCreationAllowed, at))
			s.Equal(tc.max, s.engine.NumericValue(PersonaCreationAllowed, Context{TrustLevel: tc.level}))
		})
	}
}

func (s *PolicySuite) TestUnknownLevelFallsBackToNewTier() {
	pctx := Context{TrustLevel: trustmodels.Level("BOGUS"), CurrentCount: 2}
	s.True(s.engine.Evaluate(PersonaCreationAllowed, pctx))
	pctx.CurrentCount = 3
	s.False(s.engine.Evaluate(PersonaCreationAllowed, pctx))
}

func (s *PolicySuite) TestPostRateLimit() {
	s.Run("per-level hourly limits", func() {
		for level, limit := range map[trustmodels.Level]int{
			trustmodels.LevelNew:     10,
			trustmodels.LevelRegular: 20,
			trustmodels.LevelTrusted: 50,
		} {
			s.True(s.engine.Evaluate(PostRateLimit, Context{TrustLevel: level, RecentPostCount: limit - 1}))
			s.False(s.engine.Evaluate(PostRateLimit, Context{TrustLevel: level, RecentPostCount: limit}))
		}
	})

	s.Run("account ceiling trumps per-persona headroom", func() {
		account := 30
		pctx := Context{
			TrustLevel:             trustmodels.LevelTrusted,
			RecentPostCount:        5,
			AccountRecentPostCount: &account,
		}
		s.False(s.engine.Evaluate(PostRateLimit, pctx))
	})

	s.Run("missing account count skips the ceiling", func() {
		pctx := Context{TrustLevel: trustmodels.LevelTrusted, RecentPostCount: 5}
		s.True(s.engine.Evaluate(PostRateLimit, pctx))
	})
}

func (s *PolicySuite) TestRotationCooldown() {
	s.Run("never rotated is allowed", func() {
		s.True(s.engine.Evaluate(PersonaRotationAllowed, Context{Now: s.now}))
	})

	s.Run("inside cooldown is denied", func() {
		last := s.now.Add(-29 * 24 * time.Hour)
		s.False(s.engine.Evaluate(PersonaRotationAllowed, Context{LastRotatedAt: &last, Now: s.now}))
	})

	s.Run("at the boundary is allowed", func() {
		last := s.now.Add(-30 * 24 * time.Hour)
		s.True(s.engine.Evaluate(PersonaRotationAllowed, Context{LastRotatedAt: &last, Now: s.now}))
	})
}

func (s *PolicySuite) TestReloadSwapsLimits() {
	table := DefaultTable()
	table.MaxActivePersonas[trustmodels.LevelNew] = 1
	s.engine.Reload(table)

	pctx := Context{TrustLevel: trustmodels.LevelNew, CurrentCount: 1}
	s.False(s.engine.Evaluate(PersonaCreationAllowed, pctx))
}

func (s *PolicySuite) TestUnknownPolicyPanics() {
	s.Panics(func() { s.engine.Evaluate(Name("no_such_policy"), Context{}) })
	s.Panics(func() { s.engine.NumericValue(Name("no_such_policy"), Context{}) })
}

func TestDisplayNameReuseWindowValue(t *testing.T) {
	engine := NewEngine(DefaultTable())
	assert.Equal(t, 30, engine.NumericValue(DisplayNameReuseWindow, Context{}))
}
