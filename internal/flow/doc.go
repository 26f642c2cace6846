/*
Package flow builds ecFlow suites as a tree of nodes and compiles them.

A tree is made of suites, families, anchor families and tasks. Every node
owns an ordered set of entries: child nodes and attributes such as
variables, triggers, limits, repeats and time dependencies. Trees are
usually assembled through a Builder, which keeps a stack of open scopes
and attaches every new node to the innermost one:

	b := flow.NewBuilder()
	s := b.Suite("s", flow.WithFiles("/tmp/s"))
	b.Within(s, func() {
		t1 := b.Task("t1", flow.WithScript(script.New("echo hello")))
		t2 := b.Task("t2")
		t1.Then(t2)
	})
	if err := b.Err(); err != nil {
		return err
	}

Trigger and complete conditions are expressions from package expr. Nodes
and the value-bearing attributes can be used directly as operands; a node
stands for "<node> eq complete". References render as paths relative to
the node owning the condition.

Generation turns the tree into the definition model of package defs.
Extern nodes, created with the Extern* functions, stand for nodes that
live on the server but are built elsewhere. They may be referenced but
never generated, deployed or replaced on a server.
*/
package flow
