package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

func TestRemoteWriteUnwraps(t *testing.T) {
	err := fmt.Errorf("place: %w", errs.RemoteWrite("create order", store.ErrDuplicate))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	var rw *errs.RemoteWriteError
	assert.True(t, errors.As(err, &rw))
	assert.Equal(t, http.StatusBadGateway, rw.HTTPStatus())
}

func TestValidationMessageIsStable(t *testing.T) {
	err := &errs.ValidationError{Errors: map[string]string{"zip": "required", "city": "required"}}
	assert.Equal(t, "validation failed: city, zip", err.Error())
	assert.Len(t, err.Fields(), 2)
}
