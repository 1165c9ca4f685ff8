package repository

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrAlreadyLiked = errors.New("like already exists")
	ErrLikeNotFound = errors.New("like not found")
)
