package core

import "fmt"

// ParseError is returned when a command line does not match the expense or
// category grammar. Its message is shown to the user verbatim.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Could not understand %q. Please answer in format:\nCategory Amount\nFor example: Transport -1000", e.Line)
}

// CategoryNotFoundError is returned on expense entry when implicit category
// creation is disabled and a line names an unknown category.
type CategoryNotFoundError struct {
	Name string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("Category %q does not exist. Create it first, then retry", e.Name)
}
