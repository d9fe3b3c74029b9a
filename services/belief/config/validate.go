// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("delimiter", validateDelimiter)
}

// reservedDelimiters appear inside records: kind markers, payload and
// weight separators, the comment prefix and dotted slot keys.
const reservedDelimiters = ",:/#-*+."

// validateDelimiter accepts a single rune that survives line
// normalization and cannot occur inside a field.
func validateDelimiter(fl validator.FieldLevel) bool {
	d := fl.Field().String()
	if utf8.RuneCountInString(d) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(d)
	if unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return !strings.ContainsRune(reservedDelimiters, r)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Artifact.Store == "gcs" && c.Artifact.GCS.Bucket == "" {
		return fmt.Errorf("%w: artifact.gcs.bucket is required for the gcs store", ErrInvalidConfig)
	}
	return nil
}
