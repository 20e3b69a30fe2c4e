package service

import "errors"

var (
	ErrItemNotInOrder = errors.New("item is not part of the order")
	ErrNoPendingItems = errors.New("order has no pending items to move")
	ErrOrderCompleted = errors.New("order conference is already completed")
)
