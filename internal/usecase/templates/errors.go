package templates

import (
	"errors"
	"fmt"
)

// Rule — код нарушенного правила валидации шаблона.
type Rule string

const (
	RuleGenericWithPeriod Rule = "generic_with_period"
	RulePeriodIncomplete  Rule = "period_incomplete"
	RulePeriodInverted    Rule = "period_inverted"
	RuleDuplicateGeneric  Rule = "duplicate_generic"
	RuleOverlappingPeriod Rule = "overlapping_period"
	RuleInvalidEntry      Rule = "invalid_entry"
)

// ValidationError блокирует запись шаблона; Message показывается редактору.
type ValidationError struct {
	Rule    Rule
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func reject(rule Rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// AsValidationError достаёт ValidationError из цепочки ошибок.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
