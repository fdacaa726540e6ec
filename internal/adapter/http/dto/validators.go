package dto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// transTimeLayout is the provider's compact timestamp format.
const transTimeLayout = "20060102150405"

// nairobiOffset: provider timestamps are wall-clock EAT, no zone marker.
var nairobiOffset = time.FixedZone("EAT", 3*60*60)

// ParseTransTime parses the provider's yyyyMMddHHmmss timestamp.
func ParseTransTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(transTimeLayout, s, nairobiOffset)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trans time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseAmount converts the provider's decimal string in major units into
// minor units. At most two decimal places are accepted; the provider
// never quotes sub-cent amounts.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if major < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return major*100 + cents, nil
}

// formatMSISDN renders a numeric phone number from callback metadata.
func formatMSISDN(f float64) string {
	return strconv.FormatInt(int64(f), 10)
}
