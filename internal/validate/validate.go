// Package validate judges semantic correctness of sanitized form input.
// Failures are human-readable messages accumulated across all fields, never
// Go errors; only programmer mistakes (a field nobody registered a rule for)
// surface, and they surface as messages too so coverage stays total.
package validate

import (
	"context"
	"fmt"
	"mime/multipart"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	playground "github.com/go-playground/validator/v10"

	"github.com/loanform/loanform/internal/sanitize"
)

// MaxFileSize caps accepted uploads at 2 MiB.
const MaxFileSize = 2 << 20

var (
	phonePattern = regexp.MustCompile(`^\+?\d{8,15}$`)
	grammar      = playground.New()
)

// FieldFunc checks one sanitized field value and returns failure messages.
type FieldFunc func(ctx context.Context, value string) []string

// FileValidator checks one uploaded file. Supports matches on the filename
// suffix so validators for different formats can coexist.
type FileValidator interface {
	Supports(filename string) bool
	Check(fh *multipart.FileHeader) []string
}

// Validator dispatches exactly one rule per field key and one file validator
// per uploaded file. Built once at startup, read-only afterwards.
type Validator struct {
	fields map[string]FieldFunc
	files  []FileValidator
}

// New builds the validator covering all intake form fields. The MX lookup is
// delegated to the injected resolver so it stays testable.
func New(resolver MXResolver) *Validator {
	v := &Validator{files: []FileValidator{JPEGFile{MaxSize: MaxFileSize}}}
	v.fields = map[string]FieldFunc{
		sanitize.FieldFullName:   fullName,
		sanitize.FieldEmail:      emailRule(resolver),
		sanitize.FieldPhone:      phone,
		sanitize.FieldLoanAmount: loanAmount,
	}
	return v
}

// Fields validates every supplied field, accumulating all messages. A field
// without a registered rule is itself a failure rather than a silent pass.
func (v *Validator) Fields(ctx context.Context, fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []string
	for _, key := range keys {
		rule, ok := v.fields[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("No validator registered for field: %s", key))
			continue
		}
		errs = append(errs, rule(ctx, fields[key])...)
	}
	return errs
}

// Files validates every required upload. A missing file and a file no
// validator claims are both reported.
func (v *Validator) Files(files map[string]*multipart.FileHeader, required []string) []string {
	var errs []string
	for _, key := range required {
		fh := files[key]
		if fh == nil || fh.Size == 0 {
			errs = append(errs, "File is required.")
			continue
		}

		matched := false
		for _, fv := range v.files {
			if fv.Supports(fh.Filename) {
				matched = true
				errs = append(errs, fv.Check(fh)...)
				break
			}
		}
		if !matched {
			errs = append(errs, fmt.Sprintf("No file validator registered for file: %s", fh.Filename))
		}
	}
	return errs
}

func fullName(_ context.Context, value string) []string {
	if len(value) < 3 {
		return []string{"Name must be at least 3 characters."}
	}
	if !strings.Contains(value, " ") {
		return []string{"Full name must contain at least first name and last name."}
	}
	return nil
}

func emailRule(resolver MXResolver) FieldFunc {
	return func(ctx context.Context, value string) []string {
		if value == "" || grammar.VarCtx(ctx, value, "email") != nil {
			return []string{"Invalid email address."}
		}

		_, domain, _ := strings.Cut(value, "@")
		ok, err := resolver.HasMX(ctx, domain)
		if err != nil || !ok {
			return []string{"Email domain cannot receive mail."}
		}
		return nil
	}
}

func phone(_ context.Context, value string) []string {
	if !phonePattern.MatchString(value) {
		return []string{"Invalid phone number format."}
	}
	return nil
}

func loanAmount(_ context.Context, value string) []string {
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil || amount <= 0 {
		return []string{"Loan amount must be a positive number."}
	}
	return nil
}

// JPEGFile accepts .jpg/.jpeg uploads whose sniffed content is image/jpeg.
type JPEGFile struct {
	MaxSize int64
}

// Supports matches on the filename suffix, case-insensitive.
func (j JPEGFile) Supports(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}

// Check sniffs the real MIME type from content; the filename and the
// client-supplied Content-Type header are not trusted.
func (j JPEGFile) Check(fh *multipart.FileHeader) []string {
	f, err := fh.Open()
	if err != nil {
		return []string{"File upload failed."}
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil || !mtype.Is("image/jpeg") {
		return []string{"Only JPEG files are allowed."}
	}

	if fh.Size > j.MaxSize {
		return []string{"File exceeds maximum size of 2MB."}
	}
	return nil
}
