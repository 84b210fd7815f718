package handlers

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var nameCharsRe = regexp.MustCompile(`^[a-zA-Z\s]+$`)

// RegisterCustomValidators wires the domain-specific rules into gin's
// binding validator. Called once while building the router.
func RegisterCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	_ = v.RegisterValidation("namechars", func(fl validator.FieldLevel) bool {
		return nameCharsRe.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()

		var upper, lower, digit, special bool

		for _, r := range s {
			switch {
			case r >= 'A' && r <= 'Z':
				upper = true
			case r >= 'a' && r <= 'z':
				lower = true
			case r >= '0' && r <= '9':
				digit = true
			case strings.ContainsRune("@$!%*?&#^()-_=+[]{};:,.<>/", r):
				special = true
			}
		}

		return upper && lower && digit && special
	})
}
