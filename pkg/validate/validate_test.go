package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kirana/pkg/validate"
)

type addressInput struct {
	Name   string `json:"name"   validate:"required,max=40"`
	Street string `json:"street" validate:"required"`
	Zip    string `json:"zip"    validate:"required,digits=6"`
	Email  string `json:"email"  validate:"nullable,email"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(addressInput{Name: "Asha", Street: "12 MG Road", Zip: "560001"})
	assert.False(t, validate.HasErrors(errs), "%v", errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(addressInput{})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "street")
	assert.Contains(t, errs, "zip")
	assert.NotContains(t, errs, "email")
}

func TestDigitsRule(t *testing.T) {
	errs := validate.Struct(addressInput{Name: "A", Street: "S", Zip: "5600"})
	assert.Contains(t, errs, "zip")

	errs = validate.Struct(addressInput{Name: "A", Street: "S", Zip: "56000a"})
	assert.Contains(t, errs, "zip")
}

func TestNullableSkipsRules(t *testing.T) {
	errs := validate.Struct(addressInput{Name: "A", Street: "S", Zip: "560001", Email: "nope"})
	assert.Contains(t, errs, "email")
}

func TestNumericBounds(t *testing.T) {
	type in struct {
		Quantity int     `json:"quantity" validate:"gte=0,lte=99"`
		Price    float64 `json:"price"    validate:"gt=0"`
	}
	assert.Contains(t, validate.Struct(in{Quantity: -1, Price: 1}), "quantity")
	assert.Contains(t, validate.Struct(in{Quantity: 100, Price: 1}), "quantity")
	assert.Contains(t, validate.Struct(in{Quantity: 1, Price: 0}), "price")
	assert.Empty(t, validate.Struct(in{Quantity: 0, Price: 9.5}))
}

func TestInRule(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"required,in=pending|confirmed|shipped"`
	}
	assert.Contains(t, validate.Struct(in{Status: "lost"}), "status")
	assert.Empty(t, validate.Struct(in{Status: "shipped"}))
}

func TestPointerFields(t *testing.T) {
	type in struct {
		Parent *string `json:"parent" validate:"nullable,uuid"`
		Order  *int    `json:"order"  validate:"required,min=1"`
	}
	bad := "x"
	one := 1
	zero := 0

	assert.Contains(t, validate.Struct(in{}), "order")
	assert.Contains(t, validate.Struct(in{Order: &zero}), "order")
	assert.Contains(t, validate.Struct(in{Order: &one, Parent: &bad}), "parent")
	assert.Empty(t, validate.Struct(in{Order: &one}))
}
