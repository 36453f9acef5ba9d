/*
Package arbor is an event-driven behavior-tree engine.

A tree is a set of nodes. Each node carries a bundle of behaviors that react
to events: a parent asks a child for its outcome (GetOutcome), the child
eventually answers Pass or Fail (Outcome), and the answer bubbles to the
parent (ChildFinished). Control-flow composites such as Sequence, Fallback,
Parallel and ScoreSelector are ordinary behaviors built on those events, as
are decorators like Repeat and BubbleUp. Leaves may resolve synchronously or
hand work to a goroutine through ExternalTask; the engine stays
single-owner and picks results up on the next Tick.

# Usage

	eng := arbor.New(arbor.WithLogger(logger))

	root, _ := eng.NewNode("deploy", arbor.NoNode)
	_ = eng.Attach(root, arbor.Sequence())

	build, _ := eng.NewNode("build", root)
	_ = eng.Attach(build, arbor.ExternalTask(func(ctx context.Context, emit arbor.Emitter) (arbor.Outcome, error) {
		emit(arbor.OutputLine{Line: "compiling"})
		return arbor.Pass, nil
	}))

	outcome, err := eng.Run(ctx, root)

Trees can also be declared in YAML and built through a loader.Loader; see
WithSource and Engine.LoadTree. Runner executes named trees end to end,
recording every outcome in a journal.
*/
package arbor
