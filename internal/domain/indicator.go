package domain

import (
	"fmt"
	"regexp"
	"strings"
)

type IndicatorType string

const (
	IndicatorPhone         IndicatorType = "phone"
	IndicatorName          IndicatorType = "name"
	IndicatorTransactionID IndicatorType = "transaction_id"
)

const DefaultIndicatorSource = "web_ui"

var phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)

type Indicator struct {
	Type   IndicatorType
	Value  string
	Source string
}

func (i Indicator) Validate() error {
	if strings.TrimSpace(i.Value) == "" {
		return fmt.Errorf("%w: value is empty", ErrInvalidIndicator)
	}

	switch i.Type {
	case IndicatorPhone:
		if !phonePattern.MatchString(i.Value) {
			return fmt.Errorf("%w: %q is not a phone number", ErrInvalidIndicator, i.Value)
		}
	case IndicatorName:
		if len(i.Value) < 2 {
			return fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidIndicator)
		}
	case IndicatorTransactionID:
		if len(i.Value) < 5 {
			return fmt.Errorf("%w: transaction id must be at least 5 characters", ErrInvalidIndicator)
		}
	}

	return nil
}

func (i Indicator) SourceOrDefault() string {
	if strings.TrimSpace(i.Source) == "" {
		return DefaultIndicatorSource
	}
	return i.Source
}
