package orm

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateRecord checks every column carrying a rule tag against the
// record's current attributes. Failures collect per field; nothing is
// written when any rule fails.
func (m *Model) validateRecord(r *Record) error {
	var fields map[string][]string

	for _, c := range m.columns {
		if c.Rules == "" {
			continue
		}
		err := validate.Var(r.attrs[c.Name], c.Rules)
		if err == nil {
			continue
		}
		if fields == nil {
			fields = make(map[string][]string)
		}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			fields[c.Name] = append(fields[c.Name], err.Error())
			continue
		}
		for _, ve := range verrs {
			msg := fmt.Sprintf("%s is invalid (%s)", c.Name, ve.Tag())
			if ve.Param() != "" {
				msg = fmt.Sprintf("%s is invalid (%s=%s)", c.Name, ve.Tag(), ve.Param())
			}
			fields[c.Name] = append(fields[c.Name], msg)
		}
	}

	if fields != nil {
		return &ValidationError{Model: m.name, Fields: fields}
	}
	return nil
}
