package validate

// This package wraps go-playground/validator and owns the two input error kinds
// used across the tool.
//
// e.g. internal/config/config.go
//   type DatasetSpec struct {
//       Root     string `yaml:"root" validate:"required"`
//       Filename string `yaml:"filename,omitempty" validate:"omitempty,meshfile"`
//   }
//
// Struct failures are reported as ErrInvalid with the offending field names.

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformed marks input that could not be parsed at all.
	ErrMalformed = errors.New("malformed input")
	// ErrInvalid marks input that parsed but breaks a rule.
	ErrInvalid = errors.New("validation error")
)

//nolint:gochecknoglobals // Shared validator singleton.
var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// get returns a process-wide singleton of the validator.
func get() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
		// meshfile: a bare file name with a .vtp or .vtk extension.
		_ = validatorInst.RegisterValidation("meshfile", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			if name != filepath.Base(name) {
				return false
			}
			return IsMeshFile(name)
		})
	})
	return validatorInst
}

// IsMeshFile reports whether name has a mesh file extension.
func IsMeshFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".vtp" || ext == ".vtk"
}

// Struct validates a struct using the shared validator instance.
func Struct(v any) error {
	return wrap(get().Struct(v))
}

// Var validates a single variable against the provided tag constraints.
func Var(field any, tag string) error {
	return wrap(get().Var(field, tag))
}

// Invalidf builds an ErrInvalid error with a message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Malformedf builds an ErrMalformed error with a message.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
