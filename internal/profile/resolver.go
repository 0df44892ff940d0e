// Package profile translates named configuration profiles into OCRmyPDF
// command-line flags.
package profile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spherical/ocrbatch/internal/config"
)

// ErrProfileNotFound indicates the requested profile is absent from the
// configuration.
var ErrProfileNotFound = errors.New("profile not found")

// UnknownOptionError indicates a profile contains an option key outside the
// recognized OCRmyPDF vocabulary, or a value of the wrong type. Unknown keys
// are rejected rather than passed through, so typos surface before any file
// is touched.
type UnknownOptionError struct {
	Profile string
	Key     string
	Reason  string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("profile %q: option %q: %s", e.Profile, e.Key, e.Reason)
}

// kind is the declared value type of a recognized option.
type kind int

const (
	kindBool kind = iota
	kindInt
	kindFloat
	kindString
)

func (k kind) String() string {
	switch k {
	case kindBool:
		return "boolean"
	case kindInt:
		return "integer"
	case kindFloat:
		return "number"
	default:
		return "string"
	}
}

// descriptor maps one recognized option key to its OCRmyPDF flag and value type.
type descriptor struct {
	key  string
	flag string
	kind kind
}

// descriptors is the full recognized vocabulary, in emission order.
// Extending ocrbatch to a newer OCRmyPDF flag surface means extending
// this table only.
var descriptors = []descriptor{
	{"language", "--language", kindString},
	{"output_type", "--output-type", kindString},
	{"force_ocr", "--force-ocr", kindBool},
	{"deskew", "--deskew", kindBool},
	{"clean", "--clean", kindBool},
	{"clean_final", "--clean-final", kindBool},
	{"rotate_pages", "--rotate-pages", kindBool},
	{"rotate_pages_threshold", "--rotate-pages-threshold", kindFloat},
	{"remove_background", "--remove-background", kindBool},
	{"oversample", "--oversample", kindInt},
	{"remove_vectors", "--remove-vectors", kindBool},
	{"jobs", "--jobs", kindInt},
	{"pdf_renderer", "--pdf-renderer", kindString},
}

var descriptorIndex = func() map[string]descriptor {
	m := make(map[string]descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.key] = d
	}
	return m
}()

// Resolve returns the OCRmyPDF argument tokens for the named profile.
// Booleans emit a bare flag when true and nothing when false or absent;
// all other kinds emit a flag token followed by a value token.
func Resolve(cfg *config.Config, name string) ([]string, error) {
	opts, ok := cfg.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	if err := validateOptions(name, opts); err != nil {
		return nil, err
	}

	var args []string
	for _, d := range descriptors {
		value, ok := opts[d.key]
		if !ok || value == nil {
			continue
		}

		switch d.kind {
		case kindBool:
			if value.(bool) {
				args = append(args, d.flag)
			}
		default:
			args = append(args, d.flag, formatValue(value))
		}
	}

	return args, nil
}

// ValidateAll checks every profile in the configuration against the
// descriptor table, so malformed profiles are rejected at startup even when
// they are not the one selected for this run.
func ValidateAll(cfg *config.Config) error {
	for name, opts := range cfg.Profiles {
		if err := validateOptions(name, opts); err != nil {
			return err
		}
	}
	return nil
}

// RecognizedOptions returns the recognized option keys in emission order,
// for display purposes.
func RecognizedOptions() []string {
	keys := make([]string, len(descriptors))
	for i, d := range descriptors {
		keys[i] = d.key
	}
	return keys
}

func validateOptions(profile string, opts config.OptionSet) error {
	for key, value := range opts {
		d, ok := descriptorIndex[key]
		if !ok {
			return &UnknownOptionError{Profile: profile, Key: key, Reason: "not a recognized OCRmyPDF option"}
		}
		if value == nil {
			continue
		}
		if err := checkKind(d.kind, value); err != nil {
			return &UnknownOptionError{Profile: profile, Key: key, Reason: err.Error()}
		}
	}
	return nil
}

func checkKind(k kind, value any) error {
	switch k {
	case kindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected %s, got %T", k, value)
		}
	case kindInt:
		if _, ok := value.(int); !ok {
			return fmt.Errorf("expected %s, got %T", k, value)
		}
	case kindFloat:
		switch value.(type) {
		case int, float64:
		default:
			return fmt.Errorf("expected %s, got %T", k, value)
		}
	case kindString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected %s, got %T", k, value)
		}
	}
	return nil
}

// formatValue stringifies a validated option value. Floats use the shortest
// representation that round-trips, so source precision is preserved.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
