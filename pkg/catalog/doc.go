// Package catalog declares actions as data.
//
// A catalog is a YAML (or JSON) document with an "actions" list. Each entry
// names the action, its intent, its notion and dependency groups and its
// replies. Validators and dynamic reply producers cannot be written as data;
// they are attached by alias or action name when compiling:
//
//	c, err := catalog.LoadFile("actions.yaml")
//	actions, err := catalog.CompileAll(c.Definitions,
//		catalog.WithValidators(map[string]domain.Validator{"age": checkAge}))
package catalog
