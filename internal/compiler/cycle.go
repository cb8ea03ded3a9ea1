package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spaghetti/internal/ir"
)

// CycleWarning represents a feedback loop in a package's signal graph.
//
// Loops are legal: each tick is a single pass in insertion order, so the
// value crossing a back link is the one written on the previous tick.
// The warning tells the author where that delay happens.
type CycleWarning struct {
	Path    []string `json:"path"`    // Loop path: ["not#1", "not#2", "not#1"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeFeedback performs static loop analysis on a package definition.
//
// It builds the element-to-element signal graph from the links and uses
// Tarjan's algorithm to find strongly connected components. Each component
// with more than one element, or an element linked to itself, is reported.
// Nested bodies are analyzed too, with their element names prefixed by the
// enclosing element.
//
// An acyclic package returns an empty warning list.
func AnalyzeFeedback(doc ir.PackageDoc) []CycleWarning {
	return analyzeFeedback(doc, "")
}

func analyzeFeedback(doc ir.PackageDoc, prefix string) []CycleWarning {
	warnings := []CycleWarning{}

	label := make(map[ir.ElementID]string, len(doc.Elements))
	graph := newDependencyGraph()
	for _, ed := range doc.Elements {
		name := ed.Meta.Name
		if name == "" {
			name = ed.Type
		}
		label[ed.ID] = fmt.Sprintf("%s%s#%d", prefix, name, ed.ID)
		graph.addNode(label[ed.ID])
	}
	for _, l := range doc.Links {
		from, ok1 := label[l.From]
		to, ok2 := label[l.To]
		if ok1 && ok2 {
			graph.addEdge(from, to)
		}
	}

	for _, scc := range graph.tarjanSCC() {
		if len(scc) > 1 || graph.hasSelfLoop(scc[0]) {
			path := graph.cyclePath(scc)
			w := CycleWarning{Path: path, Level: "info"}
			if len(scc) == 1 {
				w.Message = fmt.Sprintf("element %s feeds its own input and reads it one tick late", scc[0])
			} else {
				w.Message = fmt.Sprintf("feedback loop %s: the back link is read one tick late", strings.Join(path, " → "))
			}
			warnings = append(warnings, w)
		}
	}

	for _, ed := range doc.Elements {
		if ed.Body != nil {
			warnings = append(warnings, analyzeFeedback(*ed.Body, label[ed.ID]+"/")...)
		}
	}
	return warnings
}

// AnalyzeComposition checks a set of definitions for self-nesting: a
// definition whose body, directly or through other definitions in the set,
// contains an element of its own type. Such a type would expand forever,
// so every cycle is an error.
func AnalyzeComposition(docs []ir.PackageDoc) []ValidationError {
	defined := make(map[string]bool, len(docs))
	for _, d := range docs {
		defined[d.Type] = true
	}

	graph := newDependencyGraph()
	for _, d := range docs {
		graph.addNode(d.Type)
		for _, t := range referencedTypes(d) {
			if defined[t] {
				graph.addEdge(d.Type, t)
			}
		}
	}

	var errs []ValidationError
	for _, scc := range graph.tarjanSCC() {
		if len(scc) > 1 || graph.hasSelfLoop(scc[0]) {
			path := graph.cyclePath(scc)
			errs = append(errs, ValidationError{
				Field:   path[0],
				Message: fmt.Sprintf("recursive composition %s", strings.Join(path, " -> ")),
				Code:    ErrSelfNesting,
			})
		}
	}
	return errs
}

// referencedTypes lists the element types used in doc, including those
// inside nested bodies.
func referencedTypes(doc ir.PackageDoc) []string {
	var out []string
	for _, ed := range doc.Elements {
		out = append(out, ed.Type)
		if ed.Body != nil {
			out = append(out, referencedTypes(*ed.Body)...)
		}
	}
	return out
}

// dependencyGraph is a directed graph that remembers insertion order so
// the analysis is deterministic.
type dependencyGraph struct {
	nodes []string
	edges map[string][]string
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{edges: make(map[string][]string)}
}

func (g *dependencyGraph) addNode(n string) {
	if _, ok := g.edges[n]; ok {
		return
	}
	g.nodes = append(g.nodes, n)
	g.edges[n] = []string{}
}

func (g *dependencyGraph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
}

// hasSelfLoop checks if a node has an edge to itself.
func (g *dependencyGraph) hasSelfLoop(node string) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in insertion order; each component is returned in
// insertion order of its members.
func (g *dependencyGraph) tarjanSCC() [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)
	order := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		order[n] = i
	}

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.SortFunc(scc, func(a, b string) int { return cmp.Compare(order[a], order[b]) })
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []string) int { return cmp.Compare(order[a[0]], order[b[0]]) })
	return sccs
}

// cyclePath walks a closed path through an SCC, starting at its first
// member and following edges to unvisited members until it returns.
func (g *dependencyGraph) cyclePath(scc []string) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		for _, w := range g.edges[current] {
			if members[w] && !visited[w] {
				next = w
				break
			}
		}
		if next == "" {
			if slices.Contains(g.edges[current], start) {
				path = append(path, start)
			}
			return path
		}
		path = append(path, next)
		visited[next] = true
		current = next
	}
}
