package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/service"
)

func Test_Memberships_WhenNeverSubscribed_ShouldBeNormal(t *testing.T) {
	e := newEnv(t, nil)

	st, err := e.svc.Memberships.Status(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, model.MembershipNormal, st.Type)
	assert.False(t, st.IsPremium)
	assert.Nil(t, st.SubscriptionEnd)
}

func Test_Memberships_WhenPackageUnknown_ShouldFailInvalidPackage(t *testing.T) {
	e := newEnv(t, nil)

	_, err := e.svc.Memberships.Activate(ctx, 1, "TWO_WEEKS")
	requireCode(t, err, service.ErrInvalidPackage)

	_, err = e.svc.Memberships.Extend(ctx, 1, "")
	requireCode(t, err, service.ErrInvalidPackage)
}

func Test_Memberships_WhenExtendedWhileActive_ShouldStackOnOldEnd(t *testing.T) {
	e := newEnv(t, nil)
	st, err := e.svc.Memberships.Activate(ctx, 1, string(model.PackageOneMonth))
	require.NoError(t, err)
	assert.Equal(t, day0.Add(days(30)), *st.SubscriptionEnd)
	assert.Equal(t, 30, st.DaysRemaining)

	e.clock.Advance(days(10))
	st, err = e.svc.Memberships.Extend(ctx, 1, string(model.PackageSixMonths))

	require.NoError(t, err)
	assert.Equal(t, day0.Add(days(210)), *st.SubscriptionEnd)
	assert.Equal(t, day0, *st.SubscriptionStart)
	assert.Equal(t, model.PackageSixMonths, st.SubscriptionPackage)
	assert.True(t, st.IsPremium)
}

func Test_Memberships_WhenExtendedAfterExpiry_ShouldOpenFreshWindow(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.svc.Memberships.Activate(ctx, 1, string(model.PackageOneMonth))
	require.NoError(t, err)

	e.clock.Advance(days(40))
	lapsed, err := e.svc.Memberships.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, lapsed.IsPremium)
	assert.Equal(t, model.MembershipPremium, lapsed.Type)

	st, err := e.svc.Memberships.Extend(ctx, 1, string(model.PackageOneMonth))

	require.NoError(t, err)
	assert.Equal(t, day0.Add(days(70)), *st.SubscriptionEnd)
	assert.Equal(t, day0.Add(days(40)), *st.SubscriptionStart)
	assert.True(t, st.IsPremium)
}

func Test_Memberships_WhenExtendedWithoutSubscription_ShouldActivate(t *testing.T) {
	e := newEnv(t, nil)

	st, err := e.svc.Memberships.Extend(ctx, 3, string(model.PackageOneYear))

	require.NoError(t, err)
	assert.Equal(t, day0.Add(days(365)), *st.SubscriptionEnd)
}

func Test_Memberships_ShouldStayPremiumUntilTheEndInstant(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.svc.Memberships.Activate(ctx, 1, string(model.PackageOneMonth))
	require.NoError(t, err)

	e.clock.Advance(days(30))
	st, err := e.svc.Memberships.Status(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.IsPremium)

	e.clock.Advance(1)
	st, err = e.svc.Memberships.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, st.IsPremium)
}

func Test_Memberships_WhenExtendedConcurrently_ShouldStackEveryPackage(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.svc.Memberships.Activate(ctx, 1, string(model.PackageOneMonth))
	require.NoError(t, err)

	packages := []model.SubscriptionPackage{model.PackageOneMonth, model.PackageSixMonths, model.PackageOneYear}
	var wg sync.WaitGroup
	for _, p := range packages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Memberships.Extend(ctx, 1, string(p))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := e.svc.Memberships.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, day0.Add(days(30+30+180+365)), *st.SubscriptionEnd)
}
