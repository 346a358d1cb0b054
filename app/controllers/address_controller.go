package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kirana/app/services/addressbook"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
)

type AddressController struct {
	book *addressbook.Book
}

func NewAddressController(d Deps) *AddressController {
	return &AddressController{book: d.Addresses}
}

func (c *AddressController) Index(x *ctx.Context) {
	list, err := c.book.List(x.Context(), x.UserID())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(list)
}

func (c *AddressController) Show(x *ctx.Context) {
	a, err := c.book.Get(x.Context(), x.UserID(), x.Param("id"))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(a)
}

func (c *AddressController) Store(x *ctx.Context) {
	var in addressbook.Input
	if !x.BindJSON(&in) {
		return
	}
	a, err := c.book.Create(x.Context(), x.UserID(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(a)
}

func (c *AddressController) Update(x *ctx.Context) {
	var in addressbook.Input
	if !x.BindJSON(&in) {
		return
	}
	a, err := c.book.Update(x.Context(), x.UserID(), x.Param("id"), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(a)
}

func (c *AddressController) Destroy(x *ctx.Context) {
	if err := c.book.Delete(x.Context(), x.UserID(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AddressController) MakeDefault(x *ctx.Context) {
	if err := c.book.SetDefault(x.Context(), x.UserID(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}
