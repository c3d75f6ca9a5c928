package services

import "errors"

// Validation and lookup failures. The messages are shown to users as-is.
var (
	ErrMissingFields         = errors.New("Please fill in all fields")
	ErrPasswordsDontMatch    = errors.New("Passwords don't match!")
	ErrPasswordTooLong       = errors.New("Password too long! Max 72 bytes.")
	ErrUsernameTaken         = errors.New("Username already exists!")
	ErrUserNotFound          = errors.New("User not found!")
	ErrIncorrectPassword     = errors.New("Incorrect password!")
	ErrCurrentPasswordNeeded = errors.New("Please enter current password to make changes")
	ErrCurrentPasswordWrong  = errors.New("Current password is incorrect!")
	ErrNewPasswordsDontMatch = errors.New("New passwords don't match!")

	ErrEmptyText         = errors.New("Please enter some text!")
	ErrTextTooLong       = errors.New("Text too long!")
	ErrUnsupportedUpload = errors.New("Currently only .txt files are fully supported")
	ErrUnreadableUpload  = errors.New("Could not read file: not valid UTF-8 text")
	ErrUploadTooLarge    = errors.New("File too large")
)
