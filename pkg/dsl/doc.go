/*
Package dsl builds tree definitions in Go instead of YAML.

The builders produce the same loader.Definition a *.tree.yaml file parses
into, so a tree written here can be run, validated, graphed or exported as
YAML like any other.

Example usage:

	def, err := dsl.New("deploy").
		Var("healthy", true).
		Root(dsl.Fallback("deploy",
			dsl.Sequence("rollout",
				dsl.Command("build", "make", nil),
				dsl.Command("push", "push", map[string]any{"tag": "latest"}).RetryOnFail(),
			),
			dsl.EndWith("rollback", domain.Fail),
		)).
		Build()
*/
package dsl
