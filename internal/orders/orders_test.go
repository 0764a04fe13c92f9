package orders_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/cart"
	"github.com/DaniDevGS/triven-shop/internal/db/dbtest"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/orders"
	"github.com/DaniDevGS/triven-shop/internal/session"
	"github.com/DaniDevGS/triven-shop/internal/uploads"
)

type fixture struct {
	svc   *orders.Service
	db    *gorm.DB
	store *uploads.Store
	buyer models.User
}

func newFixture(t *testing.T, conn *gorm.DB) *fixture {
	t.Helper()
	store := uploads.NewStore(t.TempDir())
	buyer := models.User{Username: "maria"}
	require.NoError(t, conn.Create(&buyer).Error)
	return &fixture{svc: orders.NewService(conn, store), db: conn, store: store, buyer: buyer}
}

func (f *fixture) product(t *testing.T, title, price string, qty int) models.Product {
	t.Helper()
	p := models.Product{
		Title:       title,
		Description: title + " description",
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
		Category:    models.CategoryOther,
		UserID:      f.buyer.ID,
	}
	require.NoError(t, f.db.Omit("User").Create(&p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, id).Error)
	return p.Quantity
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func stateWith(token string, lines ...cart.Entry) session.State {
	st := session.NewState()
	for _, e := range lines {
		st.Cart.Entries[e.ProductID] = e
	}
	st.CheckoutToken = token
	return st
}

func entry(p models.Product, qty int) cart.Entry {
	return cart.Entry{ProductID: p.ID, Title: p.Title, UnitPrice: p.Price, Quantity: qty, Stock: p.Quantity}
}

func proofImage(t *testing.T) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return &buf
}

func proofFiles(t *testing.T, store *uploads.Store) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(store.Root, string(uploads.KindProof), "*.jpg"))
	require.NoError(t, err)
	return matches
}

func TestAssignToken(t *testing.T) {
	st := orders.AssignToken(session.NewState())
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), st.CheckoutToken)

	again := orders.AssignToken(st)
	assert.Equal(t, st.CheckoutToken, again.CheckoutToken)
}

func TestCheckoutPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.Open(t))
	soap := f.product(t, "Soap", "2.50", 5)

	cases := []struct {
		name  string
		state session.State
		token string
		proof io.Reader
		field string
	}{
		{"empty cart", stateWith("ABCD1234"), "ABCD1234", proofImage(t), "cart"},
		{"no token assigned", stateWith("", entry(soap, 1)), "", proofImage(t), "confirmation_token"},
		{"token mismatch", stateWith("ABCD1234", entry(soap, 1)), "ABCD9999", proofImage(t), "confirmation_token"},
		{"missing proof", stateWith("ABCD1234", entry(soap, 1)), "ABCD1234", nil, "proof_image"},
		{"unavailable item", stateWith("ABCD1234", entry(soap, 0)), "ABCD1234", proofImage(t), "cart"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, res, err := f.svc.Checkout(ctx, tc.state, f.buyer, tc.token, tc.proof)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Nil(t, res)
			assert.Equal(t, tc.state, next)
		})
	}

	assert.Equal(t, int64(0), f.orderCount(t))
	assert.Equal(t, 5, f.stock(t, soap.ID))
}

func TestCheckoutPlacesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.Open(t))
	soap := f.product(t, "Soap", "2.50", 5)
	rice := f.product(t, "Rice", "4.00", 1)

	st := stateWith("C0FFEE42", entry(soap, 2), entry(rice, 1))
	// Price snapshot taken when the item was added wins over the current price.
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", soap.ID).Update("price", decimal.RequireFromString("3.00")).Error)

	next, res, err := f.svc.Checkout(ctx, st, f.buyer, "  C0FFEE42 ", proofImage(t))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, next.Cart.IsEmpty())
	assert.Empty(t, next.CheckoutToken)
	assert.Equal(t, 2, st.Cart.Len(), "input state must not be mutated")

	assert.Equal(t, 3, f.stock(t, soap.ID))
	assert.Equal(t, 0, f.stock(t, rice.ID))

	stored, err := f.svc.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "C0FFEE42", stored.Code)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.True(t, decimal.RequireFromString("9.00").Equal(stored.Subtotal))
	assert.True(t, stored.Subtotal.Equal(stored.ItemsTotal()))
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Soap", stored.Items[0].ProductName)
	assert.Equal(t, "Soap description", stored.Items[0].Description)
	assert.True(t, decimal.RequireFromString("2.50").Equal(stored.Items[0].UnitPrice))
	require.NotNil(t, stored.Items[0].ProductID)
	assert.Equal(t, soap.ID, *stored.Items[0].ProductID)

	assert.NotEmpty(t, stored.ProofImage)
	_, statErr := os.Stat(f.store.Disk(stored.ProofImage))
	assert.NoError(t, statErr)

	assert.Equal(t, "C0FFEE42", res.Receipt.Code)
	assert.Equal(t, "maria", res.Receipt.Buyer)
	assert.True(t, decimal.RequireFromString("9.00").Equal(res.Receipt.Total))
	assert.Len(t, res.Receipt.Items, 2)
}

func TestCheckoutIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.Open(t))
	soap := f.product(t, "Soap", "2.50", 5)
	rice := f.product(t, "Rice", "4.00", 1)

	t.Run("stock shortage", func(t *testing.T) {
		st := stateWith("AAAA0001", entry(soap, 2), entry(rice, 3))
		next, res, err := f.svc.Checkout(ctx, st, f.buyer, "AAAA0001", proofImage(t))

		var shortage *apperrors.StockShortageError
		require.ErrorAs(t, err, &shortage)
		assert.Equal(t, rice.ID, shortage.ProductID)
		assert.Equal(t, 1, shortage.Remaining)
		assert.Equal(t, 3, shortage.Requested)
		assert.Nil(t, res)
		assert.Equal(t, st, next)
	})

	t.Run("deleted product", func(t *testing.T) {
		ghost := cart.Entry{ProductID: 9999, Title: "Ghost", UnitPrice: decimal.NewFromInt(1), Quantity: 1}
		st := stateWith("AAAA0002", entry(soap, 1), ghost)
		_, _, err := f.svc.Checkout(ctx, st, f.buyer, "AAAA0002", proofImage(t))
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("code already used", func(t *testing.T) {
		existing := models.Order{Code: "AAAA0003", UserID: f.buyer.ID, Status: models.OrderApproved}
		require.NoError(t, f.db.Omit("User", "Items").Create(&existing).Error)

		st := stateWith("AAAA0003", entry(soap, 1))
		next, _, err := f.svc.Checkout(ctx, st, f.buyer, "AAAA0003", proofImage(t))
		assert.True(t, apperrors.IsIntegrity(err))
		assert.Empty(t, next.CheckoutToken)
		assert.Equal(t, 1, next.Cart.Len())

		retry := orders.AssignToken(next)
		assert.Len(t, retry.CheckoutToken, 8)
		assert.NotEqual(t, "AAAA0003", retry.CheckoutToken)
	})

	assert.Equal(t, 5, f.stock(t, soap.ID))
	assert.Equal(t, 1, f.stock(t, rice.ID))
	assert.Equal(t, int64(1), f.orderCount(t))
	var items int64
	f.db.Model(&models.OrderLineItem{}).Count(&items)
	assert.Equal(t, int64(0), items)
	assert.Empty(t, proofFiles(t, f.store))
}

func TestConcurrentCheckoutForLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.OpenFile(t))
	last := f.product(t, "Last one", "10.00", 1)

	tokens := []string{"RACE0001", "RACE0002"}
	errs := make([]error, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		st := stateWith(token, entry(last, 1))
		proof := proofImage(t)
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			_, _, errs[i] = f.svc.Checkout(ctx, st, f.buyer, token, proof)
		}(i, token)
	}
	wg.Wait()

	var succeeded, shortages int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsStockShortage(err):
			shortages++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, shortages)
	assert.Equal(t, 0, f.stock(t, last.ID))
	assert.Equal(t, int64(1), f.orderCount(t))
}

func TestReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.Open(t))

	place := func(t *testing.T, token string, lines ...cart.Entry) models.Order {
		t.Helper()
		_, res, err := f.svc.Checkout(ctx, stateWith(token, lines...), f.buyer, token, proofImage(t))
		require.NoError(t, err)
		return res.Order
	}

	t.Run("reject restocks every line", func(t *testing.T) {
		a := f.product(t, "A", "1.00", 5)
		b := f.product(t, "B", "2.00", 5)
		order := place(t, "REJ00001", entry(a, 2), entry(b, 1))
		require.Equal(t, 3, f.stock(t, a.ID))
		require.Equal(t, 4, f.stock(t, b.ID))

		rejected, err := f.svc.Reject(ctx, order.ID, "transfer not received")
		require.NoError(t, err)
		assert.Equal(t, models.OrderRejected, rejected.Status)
		assert.Equal(t, "transfer not received", rejected.ManagerNote)
		assert.Equal(t, 5, f.stock(t, a.ID))
		assert.Equal(t, 5, f.stock(t, b.ID))

		_, err = f.svc.Reject(ctx, order.ID, "")
		var conflict *apperrors.StateConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "REJ00001", conflict.Code)
		assert.Equal(t, string(models.OrderRejected), conflict.Status)
		assert.Equal(t, 5, f.stock(t, a.ID))

		_, err = f.svc.Approve(ctx, order.ID, "")
		assert.True(t, apperrors.IsStateConflict(err))
	})

	t.Run("approve keeps stock", func(t *testing.T) {
		c := f.product(t, "C", "3.00", 2)
		order := place(t, "APP00001", entry(c, 2))

		approved, err := f.svc.Approve(ctx, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.OrderApproved, approved.Status)
		assert.Equal(t, 0, f.stock(t, c.ID))

		_, err = f.svc.Reject(ctx, order.ID, "")
		assert.True(t, apperrors.IsStateConflict(err))
		assert.Equal(t, 0, f.stock(t, c.ID))
	})

	t.Run("reject skips detached items", func(t *testing.T) {
		d := f.product(t, "D", "1.00", 3)
		e := f.product(t, "E", "1.00", 3)
		order := place(t, "REJ00002", entry(d, 1), entry(e, 1))

		require.NoError(t, f.db.Model(&models.OrderLineItem{}).Where("product_id = ?", d.ID).Update("product_id", nil).Error)
		require.NoError(t, f.db.Delete(&models.Product{}, d.ID).Error)

		_, err := f.svc.Reject(ctx, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 3, f.stock(t, e.ID))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, 4242, "")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, dbtest.Open(t))
	p := f.product(t, "P", "1.00", 10)

	var placed []models.Order
	for _, token := range []string{"LIST0001", "LIST0002", "LIST0003"} {
		_, res, err := f.svc.Checkout(ctx, stateWith(token, entry(p, 1)), f.buyer, token, proofImage(t))
		require.NoError(t, err)
		placed = append(placed, res.Order)
	}
	_, err := f.svc.Approve(ctx, placed[0].ID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, placed[1].ID, "")
	require.NoError(t, err)

	pending, err := f.svc.ListByStatus(ctx, models.OrderPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "LIST0003", pending[0].Code)
	require.NotNil(t, pending[0].User)
	assert.Equal(t, "maria", pending[0].User.Username)

	history, err := f.svc.ListForUser(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, history.Pending, 1)
	assert.Len(t, history.Approved, 1)
	assert.Len(t, history.Rejected, 1)

	other, err := f.svc.ListForUser(ctx, f.buyer.ID+100)
	require.NoError(t, err)
	assert.Empty(t, other.Pending)
}

func TestParseStatus(t *testing.T) {
	s, err := orders.ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, s)

	s, err = orders.ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, models.OrderApproved, s)

	_, err = orders.ParseStatus("shipped")
	assert.True(t, apperrors.IsValidation(err))
}

func TestReceiptMessage(t *testing.T) {
	order := models.Order{
		Code:     "ABCD1234",
		Subtotal: decimal.RequireFromString("9.00"),
		Status:   models.OrderPending,
		Items: []models.OrderLineItem{
			{LineItemSnapshot: models.LineItemSnapshot{ProductName: "Soap", Quantity: 2, UnitPrice: decimal.RequireFromString("2.50")}},
			{LineItemSnapshot: models.LineItemSnapshot{ProductName: "Rice", Quantity: 1, UnitPrice: decimal.RequireFromString("4.00")}},
		},
	}
	email := "maria@example.com"
	r := orders.NewReceipt(order, models.User{Username: "maria", Email: &email})

	assert.Equal(t, "maria@example.com", r.Email)
	msg := r.Message()
	assert.Contains(t, msg, "Order code: *ABCD1234*\n")
	assert.Contains(t, msg, "Customer: maria\n")
	assert.Contains(t, msg, "Total paid: $9.00\n")
	assert.Contains(t, msg, "  - Soap x2 ($5.00)\n")
	assert.Contains(t, msg, "  - Rice x1 ($4.00)\n")
}
