package controllers

import (
	"github.com/shashiranjanraj/kirana/app/services/auth"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/session"
)

type AuthController struct {
	auth  *auth.Service
	carts *cart.Service
}

func NewAuthController(d Deps) *AuthController {
	return &AuthController{auth: d.Auth, carts: d.Carts}
}

func (c *AuthController) Register(x *ctx.Context) {
	var in auth.RegisterInput
	if !x.BindJSON(&in) {
		return
	}
	tok, err := c.auth.Register(x.Context(), in, "")
	if err != nil {
		x.Fail(err)
		return
	}
	c.adoptGuestCart(x, tok.User.ID)
	x.Created(tok)
}

// Login issues tokens and moves whatever the guest put in their cart into
// the account's cart.
func (c *AuthController) Login(x *ctx.Context) {
	var in auth.LoginInput
	if !x.BindJSON(&in) {
		return
	}
	tok, err := c.auth.Login(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	c.adoptGuestCart(x, tok.User.ID)
	x.Success(tok)
}

func (c *AuthController) Refresh(x *ctx.Context) {
	var in struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !x.BindJSON(&in) {
		return
	}
	tok, err := c.auth.Refresh(x.Context(), in.RefreshToken)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(tok)
}

func (c *AuthController) Me(x *ctx.Context) {
	me, err := c.auth.Me(x.Context(), x.UserID())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(me)
}

func (c *AuthController) adoptGuestCart(x *ctx.Context, userID string) {
	sess := session.FromCtx(x.R)
	if sess.Fresh() {
		return
	}
	if err := c.carts.MergeGuest(x.Context(), sess.ID(), userID); err != nil {
		logger.WithCtx(x.Context()).Warn("auth: guest cart merge failed", "user_id", userID, "error", err)
	}
}
