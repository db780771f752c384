package policy

import "errors"

// Policy resolution errors
var (
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrEmployeeInactive     = errors.New("employee is not active")
	ErrNoShiftAssigned      = errors.New("no active shift assigned, contact HR")
	ErrNoLocationConfigured = errors.New("geo validation is required but the branch has no coordinates")
	ErrSettingsNotFound     = errors.New("tenant settings not found")
)
