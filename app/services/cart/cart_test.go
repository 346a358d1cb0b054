package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

type memPersister struct {
	blob    []byte
	loadErr error
	saveErr error
	cleared bool
}

func (m *memPersister) Load(context.Context) ([]byte, error) { return m.blob, m.loadErr }
func (m *memPersister) Save(_ context.Context, b []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.blob = append([]byte(nil), b...)
	return nil
}
func (m *memPersister) Clear(context.Context) error {
	m.blob = nil
	m.cleared = true
	return nil
}

func line(id string, price float64) models.CartLine {
	return models.CartLine{ProductID: id, Name: "p" + id, UnitPrice: price}
}

func TestTotalsScenario(t *testing.T) {
	ctx := context.Background()
	s := cart.Open(ctx, &memPersister{})

	require.NoError(t, s.AddLine(ctx, line("A", 10)))
	require.NoError(t, s.AddLine(ctx, line("A", 10)))
	require.NoError(t, s.AddLine(ctx, line("B", 5)))

	assert.Equal(t, 25.0, s.TotalPrice())
	assert.Equal(t, 3, s.ItemCount())
	assert.Len(t, s.Lines(), 2)
}

func TestMirrorMatchesMemoryAfterEveryOperation(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	p := &memPersister{}
	s := cart.Open(ctx, p)
	ids := []string{"A", "B", "C", "D"}

	for step := 0; step < 500; step++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			require.NoError(t, s.AddLine(ctx, line(id, float64(1+rng.Intn(50)))))
		case 1:
			err := s.SetQuantity(ctx, id, rng.Intn(4))
			if err != nil {
				require.ErrorIs(t, err, store.ErrNotFound)
				continue
			}
		case 2:
			require.NoError(t, s.RemoveLine(ctx, id))
		}

		var mirrored []models.CartLine
		require.NoError(t, json.Unmarshal(p.blob, &mirrored))
		if len(mirrored) == 0 {
			mirrored = nil
		}
		lines := s.Lines()
		if len(lines) == 0 {
			lines = nil
		}
		require.Equal(t, lines, mirrored, "step %d", step)

		var count int
		var total float64
		for _, l := range lines {
			require.GreaterOrEqual(t, l.Quantity, 1)
			count += l.Quantity
			total += l.UnitPrice * float64(l.Quantity)
		}
		require.Equal(t, count, s.ItemCount())
		require.InDelta(t, total, s.TotalPrice(), 1e-9)
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	ctx := context.Background()
	s := cart.Open(ctx, &memPersister{})
	require.NoError(t, s.AddLine(ctx, line("A", 10)))

	require.NoError(t, s.SetQuantity(ctx, "A", 4))
	assert.Equal(t, 4, s.ItemCount())

	require.NoError(t, s.SetQuantity(ctx, "A", 0))
	assert.True(t, s.Empty())
	assert.ErrorIs(t, s.SetQuantity(ctx, "A", 2), cart.ErrNoLine)
}

func TestCorruptOrUnreadableMirrorGivesEmptyCart(t *testing.T) {
	ctx := context.Background()

	s := cart.Open(ctx, &memPersister{blob: []byte("{not json")})
	assert.True(t, s.Empty())

	s = cart.Open(ctx, &memPersister{loadErr: errors.New("disk gone")})
	assert.True(t, s.Empty())

	s = cart.Open(ctx, &memPersister{blob: []byte(`[{"product_id":"A","quantity":0},{"product_id":"B","unit_price":2,"quantity":3}]`)})
	assert.Equal(t, 3, s.ItemCount())
}

func TestClearErasesMirror(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := cart.Open(ctx, p)
	require.NoError(t, s.AddLine(ctx, line("A", 10)))

	require.NoError(t, s.Clear(ctx))
	assert.True(t, p.cleared)
	assert.Nil(t, p.blob)
	assert.Zero(t, s.TotalPrice())
}

func TestSaveFailureRollsBackMemory(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := cart.Open(ctx, p)
	require.NoError(t, s.AddLine(ctx, line("A", 1)))

	p.saveErr = errors.New("quota")
	err := s.AddLine(ctx, line("B", 2))
	var rw *errs.RemoteWriteError
	require.ErrorAs(t, err, &rw)

	require.Error(t, s.SetQuantity(ctx, "A", 5))
	require.Error(t, s.RemoveLine(ctx, "A"))
	require.Error(t, s.Merge(ctx, []models.CartLine{{ProductID: "C", UnitPrice: 3, Quantity: 2}}))

	var mirror []models.CartLine
	require.NoError(t, json.Unmarshal(p.blob, &mirror))
	assert.Equal(t, mirror, s.Lines())
	assert.Equal(t, 1, s.ItemCount())
}

func seedProduct(t *testing.T, db store.Client, id string, price float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.Insert(ctx, models.TableCategories, &models.Category{ID: "cat-" + id, Name: "Staples", DisplayOrder: 1}))
	require.NoError(t, db.Insert(ctx, models.TableProducts, &models.Product{
		ID: id, Name: fmt.Sprintf("Product %s", id), Price: price, StockQuantity: 5, CategoryID: "cat-" + id,
	}))
}

func TestServiceAddProductAndMerge(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()
	kvs := kv.NewMemory()
	svc := cart.NewService(kvs, db)
	seedProduct(t, db, "rice", 60)

	c, err := svc.AddProduct(ctx, "guest-1", "rice")
	require.NoError(t, err)
	assert.Equal(t, "Staples", c.Lines()[0].CategoryLabel)
	assert.Equal(t, 60.0, c.Lines()[0].UnitPrice)

	_, err = svc.AddProduct(ctx, "user-1", "rice")
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuest(ctx, "guest-1", "user-1"))
	assert.Equal(t, 2, svc.Open(ctx, "user-1").ItemCount())
	assert.True(t, svc.Open(ctx, "guest-1").Empty())

	_, err = svc.AddProduct(ctx, "user-1", "gone")
	var stale *errs.StaleReferenceError
	assert.ErrorAs(t, err, &stale)
}
