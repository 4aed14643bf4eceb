package config

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fmtVerb matches one fmt directive such as %s, %d or %-5.2f.
var fmtVerb = regexp.MustCompile(`%[-+# 0]*(?:\d+|\*)?(?:\.(?:\d+|\*))?[a-zA-Z]`)

// newValidator returns a validator with the config-specific tags registered:
//
//	fmtverbs=N  the string is a fmt format taking exactly N arguments
func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("fmtverbs", validateFmtVerbs); err != nil {
		return nil, err
	}
	return v, nil
}

func validateFmtVerbs(fl validator.FieldLevel) bool {
	want, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return countFmtVerbs(fl.Field().String()) == want
}

// countFmtVerbs counts the arguments format consumes. "%%" takes none.
func countFmtVerbs(format string) int {
	return len(fmtVerb.FindAllString(strings.ReplaceAll(format, "%%", ""), -1))
}
