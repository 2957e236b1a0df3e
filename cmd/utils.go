package main

import (
	"conduit/internal/validator"
)

func checkEmail(v *validator.Validator, email string) {
	v.CheckNotBlank(email, "email", "must be provided")
	v.CheckEmail(email, "must be a valid email address")
}

func checkUsername(v *validator.Validator, username string) {
	v.CheckNotBlank(username, "username", "must be provided")
	v.Check(len(username) >= 5, "username", "must be at least 5 characters long")
}

func checkPassword(v *validator.Validator, password string) {
	v.CheckNotBlank(password, "password", "must be provided")
	v.Check(len(password) >= 8, "password", "must be at least 8 characters long")
}
