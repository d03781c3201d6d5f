package compiler

import "fmt"

// DefinitionError reports an invalid entry of a definition.
type DefinitionError struct {
	// Where locates the entry, e.g. "state users.detail" or "hook #2".
	Where string
	Err   error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Where, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

func stateErr(name string, format string, args ...any) error {
	return &DefinitionError{Where: "state " + name, Err: fmt.Errorf(format, args...)}
}

func hookErr(i int, format string, args ...any) error {
	return &DefinitionError{Where: fmt.Sprintf("hook #%d", i), Err: fmt.Errorf(format, args...)}
}
