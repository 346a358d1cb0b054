package controllers

import (
	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
)

type OrderController struct {
	orders *orders.Service
}

func NewOrderController(d Deps) *OrderController {
	return &OrderController{orders: d.Orders}
}

func (c *OrderController) Index(x *ctx.Context) {
	list, err := c.orders.History(x.Context(), x.UserID())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(list)
}

func (c *OrderController) Show(x *ctx.Context) {
	o, err := c.orders.Get(x.Context(), x.UserID(), x.Param("id"))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(o)
}

// AdminIndex lists every order, optionally narrowed by ?status=.
func (c *OrderController) AdminIndex(x *ctx.Context) {
	list, err := c.orders.List(x.Context(), models.OrderStatus(x.Query("status")))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(list)
}

func (c *OrderController) UpdateStatus(x *ctx.Context) {
	var in struct {
		Status string `json:"status" validate:"required"`
	}
	if !x.BindJSON(&in) {
		return
	}
	o, err := c.orders.UpdateStatus(x.Context(), x.Param("id"), models.OrderStatus(in.Status))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(o)
}
