// Package policy is the deterministic rule evaluator gating persona creation,
// posting rate, and rotation cooldown.
//
// Policies are a closed set of named variants, each with one evaluator
// function; evaluation is pure and does no I/O. The limits table is an
// immutable value held behind an atomic pointer so live reloads swap the
// whole table instead of mutating in place.
package policy

import (
	"fmt"
	"sync/atomic"
	"time"

	trustmodels "veil/internal/trust/models"
)

// Name identifies a policy. The set is closed; asking for a name outside it
// is a programmer error and panics rather than degrading into a user-facing
// failure.
type Name string

const (
	// PersonaCreationAllowed: currentCount < maxActivePersonas[trustLevel].
	PersonaCreationAllowed Name = "persona_creation_allowed"

	// PostRateLimit: persona-level hourly count under the trust-tier limit,
	// and when an account-wide count is supplied, under the account ceiling
	// too. The account ceiling stops a user from dodging per-persona limits
	// by fanning posts out across personas on one accountability profile.
	PostRateLimit Name = "post_rate_limit"

	// PersonaRotationAllowed: enough days have passed since the last
	// rotation, or there has been no rotation at all.
	PersonaRotationAllowed Name = "persona_rotation_allowed"

	// DisplayNameReuseWindow: numeric-only policy, the recency window (days)
	// during which a display name may not move between accountability
	// profiles. Trust-level independent.
	DisplayNameReuseWindow Name = "display_name_reuse_window"
)

// Context carries the inputs a policy may read. Callers populate the fields
// relevant to the policy they evaluate; evaluators ignore the rest.
type Context struct {
	TrustLevel trustmodels.Level

	// CurrentCount is the number of active personas (persona_creation_allowed).
	CurrentCount int

	// RecentPostCount is the persona's posts in the trailing hour (post_rate_limit).
	RecentPostCount int

	// AccountRecentPostCount is the account-wide trailing-hour count.
	// Nil means the caller could not supply one; the account ceiling is then
	// skipped, not treated as zero.
	AccountRecentPostCount *int

	// LastRotatedAt is when the profile last rotated a persona. Nil means
	// never rotated (persona_rotation_allowed).
	LastRotatedAt *time.Time

	// Now anchors time-based policies; injected for determinism.
	Now time.Time
}

// Table is the immutable limits configuration. Build one, hand it to the
// engine, and never write to it again; Reload swaps the whole value.
type Table struct {
	MaxActivePersonas          map[trustmodels.Level]int
	HourlyPostLimit            map[trustmodels.Level]int
	AccountHourlyPostLimit     int
	RotationCooldownDays       int
	DisplayNameReuseWindowDays int
}

// DefaultTable returns the shipped limits.
func DefaultTable() *Table {
	return &Table{
		MaxActivePersonas: map[trustmodels.Level]int{
			trustmodels.LevelNew:     3,
			trustmodels.LevelRegular: 5,
			trustmodels.LevelTrusted: 10,
		},
		HourlyPostLimit: map[trustmodels.Level]int{
			trustmodels.LevelNew:     10,
			trustmodels.LevelRegular: 20,
			trustmodels.LevelTrusted: 50,
		},
		AccountHourlyPostLimit:     30,
		RotationCooldownDays:       30,
		DisplayNameReuseWindowDays: 30,
	}
}

// Engine evaluates named policies against a context. Safe for concurrent use.
type Engine struct {
	table atomic.Pointer[Table]
}

// NewEngine creates an engine over the given table.
func NewEngine(table *Table) *Engine {
	e := &Engine{}
	e.table.Store(table)
	return e
}

// Reload atomically swaps the limits table. In-flight evaluations finish
// against the table they started with.
func (e *Engine) Reload(table *Table) {
	e.table.Store(table)
}

// Evaluate runs a boolean policy. Panics on unknown or non-boolean names:
// misconfiguration should surface loudly, not as a user error.
func (e *Engine) Evaluate(name Name, pctx Context) bool {
	t := e.table.Load()
	switch name {
	case PersonaCreationAllowed:
		return pctx.CurrentCount < t.maxPersonas(pctx.TrustLevel)
	case PostRateLimit:
		if pctx.RecentPostCount >= t.hourlyLimit(pctx.TrustLevel) {
			return false
		}
		if pctx.AccountRecentPostCount != nil && *pctx.AccountRecentPostCount >= t.AccountHourlyPostLimit {
			return false
		}
		return true
	case PersonaRotationAllowed:
		if pctx.LastRotatedAt == nil {
			return true
		}
		cooldown := time.Duration(t.RotationCooldownDays) * 24 * time.Hour
		return pctx.Now.Sub(*pctx.LastRotatedAt) >= cooldown
	default:
		panic(fmt.Sprintf("policy: unknown boolean policy %q", name))
	}
}

// NumericValue returns the value of a numeric policy. Panics on unknown or
// non-numeric names.
func (e *Engine) NumericValue(name Name, pctx Context) int {
	t := e.table.Load()
	switch name {
	case DisplayNameReuseWindow:
		return t.DisplayNameReuseWindowDays
	case PersonaCreationAllowed:
		return t.maxPersonas(pctx.TrustLevel)
	case PostRateLimit:
		return t.hourlyLimit(pctx.TrustLevel)
	default:
		panic(fmt.Sprintf("policy: unknown numeric policy %q", name))
	}
}

// maxPersonas falls back to the NEW tier for unknown levels; a persona with a
// missing ledger entry is treated as NEW rather than crashing.
func (t *Table) maxPersonas(level trustmodels.Level) int {
	if v, ok := t.MaxActivePersonas[level]; ok {
		return v
	}
	return t.MaxActivePersonas[trustmodels.LevelNew]
}

func (t *Table) hourlyLimit(level trustmodels.Level) int {
	if v, ok := t.HourlyPostLimit[level]; ok {
		return v
	}
	return t.HourlyPostLimit[trustmodels.LevelNew]
}
