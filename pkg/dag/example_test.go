package dag_test

import (
	"fmt"

	"github.com/matzehuels/libresolve/pkg/dag"
)

func ExampleDAG_basic() {
	// app -> guava -> failureaccess
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "org.example:app:1.0", Row: 0})
	_ = g.AddNode(dag.Node{ID: "com.google.guava:guava:33.0.0-jre", Row: 1})
	_ = g.AddNode(dag.Node{ID: "com.google.guava:failureaccess:1.0.2", Row: 2})
	_ = g.AddEdge(dag.Edge{From: "org.example:app:1.0", To: "com.google.guava:guava:33.0.0-jre"})
	_ = g.AddEdge(dag.Edge{From: "com.google.guava:guava:33.0.0-jre", To: "com.google.guava:failureaccess:1.0.2"})

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Max row:", g.MaxRow())
	fmt.Println("Valid:", g.Validate() == nil)
	// Output:
	// Nodes: 3
	// Edges: 2
	// Max row: 2
	// Valid: true
}

func ExampleDAG_traversal() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "app", Row: 0})
	_ = g.AddNode(dag.Node{ID: "logging", Row: 1})
	_ = g.AddNode(dag.Node{ID: "json", Row: 1})
	_ = g.AddEdge(dag.Edge{From: "app", To: "logging"})
	_ = g.AddEdge(dag.Edge{From: "app", To: "json"})

	fmt.Println("Children of app:", g.Children("app"))
	fmt.Println("Parents of json:", g.Parents("json"))
	fmt.Println("Sinks:", len(g.Sinks()))
	// Output:
	// Children of app: [logging json]
	// Parents of json: [app]
	// Sinks: 2
}
