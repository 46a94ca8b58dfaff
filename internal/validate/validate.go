// Package validate centralizes struct-tag validation for request types
// accepted at the library's operation boundaries (scrape, crawl, map),
// so enum and range checks live next to the field they constrain rather
// than scattered through each operation's hand-written checks.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var instance = validator.New()

// InputError reports that a request failed struct-tag validation. The
// Scrape Orchestrator renders it as an error result; the Map Discoverer
// and the Crawl Job Proxy return it, wrapped, as their error value.
type InputError struct {
	Fields []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error: %s", strings.Join(e.Fields, "; "))
}

// Struct validates s against its `validate:"..."` tags, returning an
// *InputError describing every failing field, or nil if s is valid.
func Struct(s any) error {
	err := instance.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &InputError{Fields: []string{err.Error()}}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
	}
	return &InputError{Fields: fields}
}
