// Package sanitize normalizes raw form input into canonical string form.
// Sanitizers never judge validity; that is the validate package's job.
package sanitize

import (
	"fmt"
	"html"
	"strings"
)

// Form field keys accepted by the intake form.
const (
	FieldFullName   = "full_name"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldLoanAmount = "loan_amount"
)

// Characters preserved by the email sanitizer, mirroring the usual
// email-oriented character filter. Shape is not validated here.
const emailSymbols = "!#$%&'*+-=?^_`{|}~@.[]/"

// Func normalizes a single raw field value.
type Func func(string) string

// Registry maps a field key to its sanitizer. Built once at startup and
// read-only afterwards, so it is safe for concurrent requests.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry builds the registry covering all intake form fields.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{
		FieldFullName:   FullName,
		FieldEmail:      Email,
		FieldPhone:      Phone,
		FieldLoanAmount: LoanAmount,
	}}
}

// Apply sanitizes every requested key from the raw input map. Problems are
// accumulated rather than aborting: an unknown key or a key without a value
// is reported and omitted from the output. The returned error list is empty
// on full success.
func (r *Registry) Apply(input map[string]string, keys []string) (map[string]string, []string) {
	output := make(map[string]string, len(keys))

	if len(input) == 0 || len(keys) == 0 {
		return output, []string{"Invalid input or keys"}
	}

	var errs []string
	for _, key := range keys {
		fn, ok := r.funcs[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("Unknown field: %s", key))
			continue
		}
		raw, ok := input[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("Missing value for field: %s", key))
			continue
		}
		output[key] = fn(raw)
	}

	return output, errs
}

// FullName HTML-escapes the value and trims surrounding whitespace.
func FullName(in string) string {
	return strings.TrimSpace(html.EscapeString(in))
}

// Email strips every character outside the email-safe set. The result may
// still be an invalid address.
func Email(in string) string {
	return keep(in, func(r rune) bool {
		return isLetterOrDigit(r) || strings.ContainsRune(emailSymbols, r)
	})
}

// Phone strips everything except digits, '+' and '-'.
func Phone(in string) string {
	return keep(in, func(r rune) bool {
		return (r >= '0' && r <= '9') || r == '+' || r == '-'
	})
}

// LoanAmount reduces the value to an unsigned decimal: only digits and dots
// survive, only the first dot is kept, leading zeros are trimmed, and a bare
// or leading dot gains a zero in front. "0001430.43" becomes "1430.43".
func LoanAmount(in string) string {
	value := keep(in, func(r rune) bool {
		return (r >= '0' && r <= '9') || r == '.'
	})

	if head, tail, found := strings.Cut(value, "."); found {
		value = head + "." + strings.ReplaceAll(tail, ".", "")
	}

	value = strings.TrimLeft(value, "0")
	if value == "" || value[0] == '.' {
		value = "0" + value
	}
	return value
}

func keep(in string, allowed func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		if allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isLetterOrDigit(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
