// internal/services/redemption_service_test.go
package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/tests"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type redemptionFixture struct {
	db     *gorm.DB
	pub    *recordingPublisher
	issuer *PaymentCodeService
	redeem *RedemptionService
	now    time.Time
	artist *models.User
	client *models.User
	item   *models.Item
}

func newRedemptionFixture(t *testing.T) *redemptionFixture {
	t.Helper()
	db := tests.NewTestDB(t)
	pub := &recordingPublisher{}
	f := &redemptionFixture{
		db:     db,
		pub:    pub,
		issuer: NewPaymentCodeService(db, pub, testEntitlementConfig),
		redeem: NewRedemptionService(db, pub, testEntitlementConfig),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.issuer.SetClock(fixedClock(f.now))
	f.redeem.SetClock(fixedClock(f.now))

	f.artist = tests.CreateUser(t, db, "artist", models.UserRoleArtist)
	f.client = tests.CreateUser(t, db, "client", models.UserRoleClient)
	f.item = tests.CreateItem(t, db, f.artist, 1000, models.ItemStatusPublished)
	return f
}

func (f *redemptionFixture) issue(t *testing.T) *models.PaymentCode {
	t.Helper()
	code, err := f.issuer.IssueCode(context.Background(), f.artist.ID, f.item.ID, 24)
	require.NoError(t, err)
	return code
}

func (f *redemptionFixture) reload(t *testing.T, code *models.PaymentCode) models.PaymentCode {
	t.Helper()
	var stored models.PaymentCode
	require.NoError(t, f.db.Where("id = ?", code.ID).First(&stored).Error)
	return stored
}

func (f *redemptionFixture) entitlementCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Entitlement{}).Count(&n).Error)
	return n
}

func TestRedeem_GrantsEntitlementAndConsumesCode(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)

	ent, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	require.NoError(t, err)

	assert.Equal(t, f.client.ID, ent.HolderID)
	assert.Equal(t, f.item.ID, ent.ItemID)
	require.NotNil(t, ent.PaymentCodeID)
	assert.Equal(t, code.ID, *ent.PaymentCodeID)
	assert.Equal(t, models.Money(1000), ent.AmountPaid)
	assert.Equal(t, models.EntitlementStatusCompleted, ent.Status)
	assert.Equal(t, 0, ent.DownloadCount)
	assert.Equal(t, 5, ent.MaxDownloads)

	stored := f.reload(t, code)
	assert.True(t, stored.IsUsed)
	require.NotNil(t, stored.UsedAt)
	assert.True(t, stored.UsedAt.Equal(f.now))
	require.NotNil(t, stored.UsedByID)
	assert.Equal(t, f.client.ID, *stored.UsedByID)

	assert.Equal(t, 1, f.pub.count(events.TypeEntitlementCreated))
}

func TestRedeem_NormalisesCode(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)

	_, err := f.redeem.Redeem(context.Background(), "  "+strings.ToLower(code.Code)+"\n", f.item.ID, f.client.ID)
	require.NoError(t, err)
}

func TestRedeem_UnknownCode(t *testing.T) {
	f := newRedemptionFixture(t)

	_, err := f.redeem.Redeem(context.Background(), "NOSUCHCODE00", f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeem_AlreadyUsed(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)
	other := tests.CreateUser(t, f.db, "other", models.UserRoleClient)

	_, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	require.NoError(t, err)

	_, err = f.redeem.Redeem(context.Background(), code.Code, f.item.ID, other.ID)
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	// Same holder again: the code check comes first.
	_, err = f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
	assert.Equal(t, int64(1), f.entitlementCount(t))
}

func TestRedeem_ExpiredCodeStaysUnused(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)

	// Exactly at expires_at the code is no longer valid.
	f.redeem.SetClock(fixedClock(code.ExpiresAt))
	_, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrExpired)

	f.redeem.SetClock(fixedClock(code.ExpiresAt.Add(time.Hour)))
	_, err = f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrExpired)

	stored := f.reload(t, code)
	assert.False(t, stored.IsUsed)
	assert.Nil(t, stored.UsedByID)
	assert.Zero(t, f.entitlementCount(t))

	// One second before expiry still works.
	f.redeem.SetClock(fixedClock(code.ExpiresAt.Add(-time.Second)))
	_, err = f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	assert.NoError(t, err)
}

func TestRedeem_Mismatch(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)
	otherItem := tests.CreateItem(t, f.db, f.artist, 700, models.ItemStatusPublished)

	_, err := f.redeem.Redeem(context.Background(), code.Code, otherItem.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.False(t, f.reload(t, code).IsUsed)
}

func TestRedeem_ItemNoLongerPublished(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)
	require.NoError(t, f.db.Model(f.item).Update("status", models.ItemStatusArchived).Error)

	_, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.reload(t, code).IsUsed)
}

func TestRedeem_ItemMadeFree(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)
	require.NoError(t, f.db.Model(f.item).Updates(map[string]interface{}{"is_free": true, "price_cents": 0}).Error)

	_, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.False(t, f.reload(t, code).IsUsed)
}

func TestRedeem_AlreadyOwnedLeavesSecondCodeUnused(t *testing.T) {
	f := newRedemptionFixture(t)
	first := f.issue(t)
	second := f.issue(t)

	_, err := f.redeem.Redeem(context.Background(), first.Code, f.item.ID, f.client.ID)
	require.NoError(t, err)

	_, err = f.redeem.Redeem(context.Background(), second.Code, f.item.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.False(t, f.reload(t, second).IsUsed)
	assert.Equal(t, int64(1), f.entitlementCount(t))
}

func TestRedeem_ConcurrentSameCodeSingleWinner(t *testing.T) {
	f := newRedemptionFixture(t)
	code := f.issue(t)

	const attempts = 8
	holders := make([]uuid.UUID, attempts)
	for i := range holders {
		holders[i] = tests.CreateUser(t, f.db, "buyer"+string(rune('a'+i)), models.UserRoleClient).ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		used      int
	)
	for _, holder := range holders {
		wg.Add(1)
		go func(holder uuid.UUID) {
			defer wg.Done()
			_, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, holder)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ErrAlreadyUsed):
				used++
			}
		}(holder)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, used)
	assert.Equal(t, int64(1), f.entitlementCount(t))
}

func TestListPurchases(t *testing.T) {
	f := newRedemptionFixture(t)
	second := tests.CreateItem(t, f.db, f.artist, 300, models.ItemStatusPublished)

	code := f.issue(t)
	_, err := f.redeem.Redeem(context.Background(), code.Code, f.item.ID, f.client.ID)
	require.NoError(t, err)

	other, err := f.issuer.IssueCode(context.Background(), f.artist.ID, second.ID, 24)
	require.NoError(t, err)
	_, err = f.redeem.Redeem(context.Background(), other.Code, second.ID, f.client.ID)
	require.NoError(t, err)

	purchases, total, err := f.redeem.ListPurchases(context.Background(), f.client.ID, utils.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, purchases, 2)
	for _, p := range purchases {
		require.NotNil(t, p.Item)
		assert.Equal(t, f.client.ID, p.HolderID)
	}

	none, total, err := f.redeem.ListPurchases(context.Background(), f.artist.ID, utils.DefaultPagination())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}
