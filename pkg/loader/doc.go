/*
Package loader reads behavior-tree definitions and builds them into an engine.

A definition is a YAML document:

	name: deploy
	vars:
	  load: 0.3
	root:
	  name: deploy
	  kind: sequence
	  children:
	    - name: fetch
	      kind: command
	      with: {command: git-pull}
	    - name: pick
	      kind: score_selector
	      children:
	        - name: fast
	          kind: end_with
	          with: {outcome: pass}
	          score_expr: "1 - vars.load"
	        - name: safe
	          kind: end_with
	          with: {outcome: pass}
	          score: 0.5
	    - name: retry
	      kind: succeed_times
	      with: {n: 2}
	      repeat: {while: pass}

Kinds are resolved through a registry.Registry; "with" is handed to the
kind's factory. "score" sets a fixed score, "score_expr" attaches a scorer
evaluated with expr against the node state and the tree variables, and
"repeat" attaches a Repeat to the same node.
*/
package loader
