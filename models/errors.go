package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModuleNotFound is matched by every NotFoundError.
	ErrModuleNotFound = errors.New("module not found")
	// ErrAlreadyRegistered is matched by every AlreadyRegisteredError.
	ErrAlreadyRegistered = errors.New("module already registered")
)

// StructureError reports every violation found while registering a module.
type StructureError struct {
	ModuleID   string
	Violations []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("module %q is malformed (%d violations): %s",
		e.ModuleID, len(e.Violations), strings.Join(e.Violations, "; "))
}

// NotFoundError is returned for an unregistered module id.
type NotFoundError struct {
	ModuleID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %q not found", e.ModuleID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrModuleNotFound
}

// AlreadyRegisteredError is returned when a module id is registered twice.
type AlreadyRegisteredError struct {
	ModuleID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("module %q already registered", e.ModuleID)
}

func (e *AlreadyRegisteredError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// ConfigError reports misconfigured matching weights.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "invalid matching configuration: " + e.Message
}

// NodeDataError identifies a malformed node met during matching.
type NodeDataError struct {
	NodeID    string
	Dimension Dimension
	Message   string
}

func (e *NodeDataError) Error() string {
	return fmt.Sprintf("node %q dimension %s: %s", e.NodeID, e.Dimension, e.Message)
}

// UnsupportedScenarioError is returned when a calculator cannot resolve the
// facts it was given. DecisionPoint names the unresolved question.
type UnsupportedScenarioError struct {
	ModuleID      string
	DecisionPoint string
	MissingFields []string
	Message       string
}

func (e *UnsupportedScenarioError) Error() string {
	msg := fmt.Sprintf("module %q cannot resolve %s", e.ModuleID, e.DecisionPoint)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.MissingFields) > 0 {
		msg += " (missing: " + strings.Join(e.MissingFields, ", ") + ")"
	}
	return msg
}

// FactValidationError lists ill-typed or unknown facts.
type FactValidationError struct {
	Problems []string
}

func (e *FactValidationError) Error() string {
	return "invalid facts: " + strings.Join(e.Problems, "; ")
}
