package savedcards

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/kv"
)

type mockKV struct{ mock.Mock }

func (m *mockKV) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockKV) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockKV) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

var errDown = errors.New("redis: connection refused")

func TestKVReadFailureIsNotAnEmptyList(t *testing.T) {
	store := &mockKV{}
	store.On("Get", mock.Anything, "cards:u1").Return("", errDown)
	svc := newService(t, "k1", store)

	_, err := svc.List(context.Background(), "u1")
	assert.ErrorIs(t, err, errDown)

	_, err = svc.Add(context.Background(), "u1", Input{Brand: "visa", Last4: "4242", Expiry: "12/28"})
	assert.ErrorIs(t, err, errDown)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestKVWriteFailureIsRemoteWrite(t *testing.T) {
	store := &mockKV{}
	store.On("Get", mock.Anything, "cards:u1").Return("", kv.ErrMissing)
	store.On("Set", mock.Anything, "cards:u1", mock.AnythingOfType("string")).Return(errDown).Once()
	svc := newService(t, "k1", store)

	_, err := svc.Add(context.Background(), "u1", Input{Brand: "rupay", Last4: "1111", Expiry: "01/27"})
	var rw *errs.RemoteWriteError
	require.ErrorAs(t, err, &rw)
	assert.ErrorIs(t, err, errDown)
	store.AssertExpectations(t)
}

func TestDeletingLastCardDropsKey(t *testing.T) {
	mem := kv.NewMemory()
	seed := newService(t, "k1", mem)
	card, err := seed.Add(context.Background(), "u1", Input{Brand: "amex", Last4: "0005", Expiry: "06/29"})
	require.NoError(t, err)
	sealed, err := mem.Get(context.Background(), Key("u1"))
	require.NoError(t, err)

	store := &mockKV{}
	store.On("Get", mock.Anything, "cards:u1").Return(sealed, nil)
	store.On("Delete", mock.Anything, "cards:u1").Return(nil).Once()
	svc := newService(t, "k1", store)

	require.NoError(t, svc.Delete(context.Background(), "u1", card.ID))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}
