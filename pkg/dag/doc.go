// Package dag provides a directed acyclic graph organized in rows, used to
// hold and render a resolved dependency closure.
//
// # Overview
//
// After conflict resolution every selected artifact has exactly one
// declaring parent, one depth above it. Placing each artifact in the row
// of its depth turns the closure into a layered graph whose edges always
// connect consecutive rows, which is what [DAG.Validate] checks.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "org.example:app:1.0", Row: 0})
//	g.AddNode(dag.Node{ID: "org.slf4j:slf4j-api:2.0.12", Row: 1})
//	g.AddEdge(dag.Edge{From: "org.example:app:1.0", To: "org.slf4j:slf4j-api:2.0.12"})
//
// Nodes and edges keep insertion order, so graphs built from the same
// resolution are identical.
package dag
