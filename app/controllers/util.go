package controllers

import (
	"errors"
	"strconv"
)

var errNotPositive = errors.New("not a positive integer")

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errNotPositive
	}
	return n, nil
}
