/*
Package params defines the parameter type system of state declarations.

A state declares an ordered Schema of Params. Each Param has a Type that validates
values and decides when two values are equal, which is what lets a transition tell
a dynamic parameter change apart from a change that requires re-entering a state.

	schema := params.Schema{
		params.New("id", params.Int()),
		params.New("tab", params.String()).WithDefault("overview").AsDynamic(),
	}

	ok := params.Validates(schema, map[string]any{"id": 7})
	changed := params.Changed(schema, toValues, fromValues)
*/
package params
