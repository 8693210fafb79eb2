package domain

import "errors"

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelExists   = errors.New("channel already exists")
	ErrPageNotFound    = errors.New("page not found")
	ErrPageProtected   = errors.New("default page cannot be deleted")
	ErrThemeNotFound   = errors.New("theme not found")
)
