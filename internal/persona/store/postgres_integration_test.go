//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accmodels "veil/internal/accountability/models"
	accountabilitystore "veil/internal/accountability/store"
	"veil/internal/persona/models"
	personastore "veil/internal/persona/store"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
	"veil/pkg/testutil/containers"
)

const reuseWindow = 30 * 24 * time.Hour

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *personastore.Postgres
	profiles *accountabilitystore.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = personastore.NewPostgres(s.postgres.DB)
	s.profiles = accountabilitystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx,
		"posts", "trust_grants", "personas", "display_name_claims", "accountability_profiles")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newProfile() id.AccountabilityID {
	now := time.Now().UTC().Truncate(time.Microsecond)
	p, err := accmodels.NewProfile(id.NewAccountabilityID(), "key-"+id.NewAccountabilityID().String(), "cipher", "hash", now)
	s.Require().NoError(err)
	s.Require().NoError(s.profiles.CreateIfEmailKeyAvailable(context.Background(), p))
	return p.ID
}

func (s *PostgresStoreSuite) newPersona(owner id.AccountabilityID, name string, at time.Time) *models.Persona {
	p, err := models.NewPersona(id.NewPersonaID(), owner, name, "", at)
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	owner := s.newProfile()
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := s.newPersona(owner, "night_owl", now)
	s.Require().NoError(s.store.CreateIfAllowed(ctx, p, 3, reuseWindow))

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.DisplayName, found.DisplayName)
	s.Equal(owner, found.AccountabilityID)
	s.Equal(models.StatusActive, found.Status)

	_, err = s.store.FindByID(ctx, id.NewPersonaID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentLimitEnforcement verifies the row-lock recount holds under
// concurrent creation: never more than maxActive personas for one owner.
func (s *PostgresStoreSuite) TestConcurrentLimitEnforcement() {
	ctx := context.Background()
	owner := s.newProfile()
	const goroutines = 20
	const maxActive = 3

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var limitCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			p := s.newPersona(owner, "racer_"+id.NewPersonaID().String()[:8], time.Now().UTC())
			err := s.store.CreateIfAllowed(ctx, p, maxActive, reuseWindow)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrLimitReached) {
				limitCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	s.Equal(int32(maxActive), successCount.Load(), "exactly maxActive creates should succeed")
	s.Equal(int32(goroutines-maxActive), limitCount.Load(), "all others should hit the limit")

	active, err := s.store.CountActiveByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Equal(maxActive, active)
}

func (s *PostgresStoreSuite) TestDisplayNameRecency() {
	ctx := context.Background()
	ownerA := s.newProfile()
	ownerB := s.newProfile()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := s.newPersona(ownerA, "Popular Name", now)
	s.Require().NoError(s.store.CreateIfAllowed(ctx, first, 10, reuseWindow))

	s.Run("another owner cannot claim it inside the window", func() {
		p := s.newPersona(ownerB, "popular name", now.Add(time.Hour))
		err := s.store.CreateIfAllowed(ctx, p, 10, reuseWindow)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("the same owner can reuse it immediately", func() {
		p := s.newPersona(ownerA, "Popular Name", now.Add(time.Hour))
		s.Require().NoError(s.store.CreateIfAllowed(ctx, p, 10, reuseWindow))
	})

	s.Run("another owner can claim it after the window", func() {
		p := s.newPersona(ownerB, "POPULAR NAME", now.Add(reuseWindow+time.Hour))
		s.Require().NoError(s.store.CreateIfAllowed(ctx, p, 10, reuseWindow))
	})
}

// TestConcurrentNameClaim verifies that two owners racing for the same fresh
// name resolve to exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentNameClaim() {
	ctx := context.Background()
	const goroutines = 10

	owners := make([]id.AccountabilityID, goroutines)
	for i := range owners {
		owners[i] = s.newProfile()
	}

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(owner id.AccountabilityID) {
			defer wg.Done()

			p := s.newPersona(owner, "Contested Name", time.Now().UTC())
			err := s.store.CreateIfAllowed(ctx, p, 10, reuseWindow)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}(owners[i])
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one claim should win")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")
}

func (s *PostgresStoreSuite) TestExecuteDeactivation() {
	ctx := context.Background()
	owner := s.newProfile()
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := s.newPersona(owner, "short_lived", now)
	s.Require().NoError(s.store.CreateIfAllowed(ctx, p, 10, reuseWindow))

	updated, err := s.store.Execute(ctx, p.ID,
		func(cur *models.Persona) error { return cur.CanDeactivate() },
		func(cur *models.Persona) { cur.ApplyDeactivation(now.Add(time.Hour)) },
	)
	s.Require().NoError(err)
	s.Equal(models.StatusDeactivated, updated.Status)

	active, err := s.store.ListActiveByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Empty(active)

	all, err := s.store.ListByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Len(all, 1)

	_, err = s.store.Execute(ctx, id.NewPersonaID(),
		func(cur *models.Persona) error { return nil },
		func(cur *models.Persona) {},
	)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
