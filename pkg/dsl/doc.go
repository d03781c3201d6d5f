/*
Package dsl provides a fluent builder for declaring Arbor state trees in Go.

It is the programmatic counterpart of the YAML definitions: states are added
in any order and Build returns them with parents first, ready for
state.Registry.Register or arbor.Engine.Register.

Example usage:

	b := dsl.New()

	b.State("users.detail").
		Param("id", params.Int()).
		OptionalParam("tab", params.String(), "info", true).
		Resolve("user", loadUser, "$stateParams")

	b.State("users").
		Resolve("list", loadUsers).
		Policy(domain.PolicyEager)

	b.State("admin").Abstract()

	if err := eng.Register(b.Build()...); err != nil {
		log.Fatal(err)
	}
*/
package dsl
