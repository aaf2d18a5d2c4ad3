package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
)

func TestTierFor(t *testing.T) {
	assert.Equal(t, models.TierBronze, TierFor(0))
	assert.Equal(t, models.TierBronze, TierFor(499))
	assert.Equal(t, models.TierSilver, TierFor(500))
	assert.Equal(t, models.TierSilver, TierFor(1999))
	assert.Equal(t, models.TierGold, TierFor(2000))
}

func TestCustomerCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lan, err := f.loyalty.CreateCustomer(ctx, CustomerInput{Name: "Lan", Phone: ptr(" 0901234567 ")})
	require.NoError(t, err)
	assert.Equal(t, "0901234567", *lan.Phone)
	assert.Equal(t, models.TierBronze, lan.Tier)

	_, err = f.loyalty.CreateCustomer(ctx, CustomerInput{Name: "Other", Phone: ptr("0901234567")})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, err = f.loyalty.CreateCustomer(ctx, CustomerInput{Name: ""})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	minh, err := f.loyalty.CreateCustomer(ctx, CustomerInput{Name: "Minh"})
	require.NoError(t, err)
	assert.Nil(t, minh.Phone)

	found, err := f.loyalty.ListCustomers(ctx, "090")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, lan.ID, found[0].ID)

	_, err = f.loyalty.UpdateCustomer(ctx, minh.ID, CustomerInput{Phone: ptr("0901234567")})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	updated, err := f.loyalty.UpdateCustomer(ctx, minh.ID, CustomerInput{Name: "Minh Anh"})
	require.NoError(t, err)
	assert.Equal(t, "Minh Anh", updated.Name)

	require.NoError(t, f.loyalty.DeleteCustomer(ctx, minh.ID))
	_, err = f.loyalty.GetCustomer(ctx, minh.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAddPointsAndBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.loyalty.CreateCustomer(ctx, CustomerInput{Name: "Lan"})
	require.NoError(t, err)

	_, customer, err := f.loyalty.AddPoints(ctx, c.ID, 600, "welcome", models.PointsEarned)
	require.NoError(t, err)
	assert.Equal(t, int64(600), customer.Points)
	assert.Equal(t, models.TierSilver, customer.Tier)

	_, customer, err = f.loyalty.AddPoints(ctx, c.ID, 150, "free drink", models.PointsSpent)
	require.NoError(t, err)
	assert.Equal(t, int64(450), customer.Points)
	assert.Equal(t, models.TierBronze, customer.Tier)

	balance, err := f.loyalty.GetBalance(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(450), balance)

	_, _, err = f.loyalty.AddPoints(ctx, c.ID, 451, "too much", models.PointsSpent)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	_, _, err = f.loyalty.AddPoints(ctx, c.ID, 0, "nothing", models.PointsEarned)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, _, err = f.loyalty.AddPoints(ctx, c.ID, 5, "bonus", "GIFTED")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, _, err = f.loyalty.AddPoints(ctx, 999, 5, "nobody", models.PointsEarned)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	history, err := f.loyalty.History(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Contains(t, f.rec.Names(), events.LoyaltyUpdated)
}

func TestCompletingOrderEarnsPointsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.table(t, "T1")
	pho := f.menu(t, "Pho", 45000)
	c, err := f.loyalty.CreateCustomer(ctx, CustomerInput{Name: "Lan"})
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, CreateOrderInput{TableID: t1.ID, Lines: lines(pho.ID, 5), CustomerID: &c.ID})
	require.NoError(t, err)
	_, err = f.orders.SetStatus(ctx, order.ID, models.OrderCompleted)
	require.NoError(t, err)
	_, err = f.orders.SetStatus(ctx, order.ID, models.OrderCompleted)
	require.NoError(t, err)

	history, err := f.loyalty.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(22), history[0].Delta)
	require.NotNil(t, history[0].OrderID)
	assert.Equal(t, order.ID, *history[0].OrderID)
	assert.Equal(t, "order "+order.OrderNumber, history[0].Reason)

	customer, err := f.loyalty.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(22), customer.Points)
}

func TestDeleteCustomerDetachesOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.table(t, "T1")
	pho := f.menu(t, "Pho", 45000)
	c, err := f.loyalty.CreateCustomer(ctx, CustomerInput{Name: "Lan"})
	require.NoError(t, err)
	order, err := f.orders.CreateOrder(ctx, CreateOrderInput{TableID: t1.ID, Lines: lines(pho.ID, 3), CustomerID: &c.ID})
	require.NoError(t, err)
	_, err = f.orders.CompleteOrder(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, f.loyalty.DeleteCustomer(ctx, c.ID))

	reread, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, reread.CustomerID)
	var entries int64
	require.NoError(t, f.db.Model(&models.PointTransaction{}).Count(&entries).Error)
	assert.Zero(t, entries)
}
