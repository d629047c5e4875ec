// FILE: lixenwraith/properties/converters.go
package properties

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FilePath is a file system path property. It is persisted with forward slashes
// and loaded with the separator of the running OS.
type FilePath string

// String returns the path in OS form.
func (p FilePath) String() string {
	return string(p)
}

type stringConverter struct{}

func (stringConverter) Format(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrTypeMismatch, v)
	}
	return s, nil
}

func (stringConverter) Parse(s string) (any, error) {
	return s, nil
}

type intConverter struct{}

func (intConverter) Format(v any) (string, error) {
	i, ok := v.(int)
	if !ok {
		return "", fmt.Errorf("%w: expected int, got %T", ErrTypeMismatch, v)
	}
	return strconv.Itoa(i), nil
}

func (intConverter) Parse(s string) (any, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to int: %w", s, err)
	}
	return i, nil
}

type floatConverter struct{}

func (floatConverter) Format(v any) (string, error) {
	f, ok := v.(float64)
	if !ok {
		return "", fmt.Errorf("%w: expected float64, got %T", ErrTypeMismatch, v)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func (floatConverter) Parse(s string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to float64: %w", s, err)
	}
	return f, nil
}

// boolConverter treats anything but a case-insensitive "true" as false
type boolConverter struct{}

func (boolConverter) Format(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("%w: expected bool, got %T", ErrTypeMismatch, v)
	}
	return strconv.FormatBool(b), nil
}

func (boolConverter) Parse(s string) (any, error) {
	return strings.EqualFold(strings.TrimSpace(s), "true"), nil
}

type filePathConverter struct{}

func (filePathConverter) Format(v any) (string, error) {
	p, ok := v.(FilePath)
	if !ok {
		return "", fmt.Errorf("%w: expected FilePath, got %T", ErrTypeMismatch, v)
	}
	return filepath.ToSlash(string(p)), nil
}

func (filePathConverter) Parse(s string) (any, error) {
	return FilePath(filepath.FromSlash(s)), nil
}

type urlConverter struct{}

func (urlConverter) Format(v any) (string, error) {
	u, ok := v.(*url.URL)
	if !ok || u == nil {
		return "", fmt.Errorf("%w: expected *url.URL, got %T", ErrTypeMismatch, v)
	}
	return u.String(), nil
}

func (urlConverter) Parse(s string) (any, error) {
	if len(s) > 2048 {
		return nil, fmt.Errorf("URL too long: %d bytes", len(s))
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("invalid URL %q: not absolute", s)
	}
	return u, nil
}

type durationConverter struct{}

func (durationConverter) Format(v any) (string, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return "", fmt.Errorf("%w: expected time.Duration, got %T", ErrTypeMismatch, v)
	}
	return d.String(), nil
}

func (durationConverter) Parse(s string) (any, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to duration: %w", s, err)
	}
	return d, nil
}
