package drawer

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/parameter"
	"github.com/nao1215/filterpipe/internal/pipeline"
)

// StoreVertex is the vertex standing for data that existed before the run.
const StoreVertex = "store"

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddFilter adds a filter vertex.
	AddFilter(index int, label string, state filter.State) error
	// AddLink adds an edge from the producer of paths to their consumer.
	AddLink(from, to string, paths []model.Path) error
	// Draw writes the graph.
	Draw(w io.Writer) error
}

// DOTDrawer builds a directed graph of filters and writes it as DOT.
type DOTDrawer struct {
	graph graph.Graph[string, string]
	order map[string]int
	title string
}

// Option configures a DOTDrawer.
type Option func(*DOTDrawer)

// WithTitle sets the graph label.
func WithTitle(title string) Option {
	return func(d *DOTDrawer) {
		d.title = title
	}
}

// NewDOTDrawer creates a drawer holding only the store vertex.
func NewDOTDrawer(opts ...Option) *DOTDrawer {
	d := &DOTDrawer{
		graph: graph.New(graph.StringHash, graph.Directed(), graph.Acyclic()),
		order: make(map[string]int),
	}
	for _, opt := range opts {
		opt(d)
	}

	_ = d.addVertex(StoreVertex,
		graph.VertexAttribute("label", "data store"),
		graph.VertexAttribute("shape", "cylinder"),
		graph.VertexAttribute("style", "filled"),
		graph.VertexAttribute("fillcolor", storeColour),
	)
	return d
}

// VertexID returns the vertex of the filter at index.
func VertexID(index int) string {
	return "f" + strconv.Itoa(index)
}

func (d *DOTDrawer) addVertex(id string, options ...func(*graph.VertexProperties)) error {
	if err := d.graph.AddVertex(id, options...); err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", id)
	}
	d.order[id] = len(d.order)
	return nil
}

// AddFilter adds a vertex for a filter.
func (d *DOTDrawer) AddFilter(index int, label string, state filter.State) error {
	colour, err := stateColour(state)
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	return d.addVertex(VertexID(index),
		graph.VertexAttribute("label", fmt.Sprintf("%d: %s", index, label)),
		graph.VertexAttribute("shape", "box"),
		graph.VertexAttribute("style", "filled"),
		graph.VertexAttribute("fillcolor", colour),
		graph.VertexAttribute("tooltip", state.String()),
	)
}

// AddLink adds an edge labelled with the paths flowing from one vertex to another.
func (d *DOTDrawer) AddLink(from, to string, paths []model.Path) error {
	labels := make([]string, len(paths))
	for i, p := range paths {
		labels[i] = p.String()
	}

	err := d.graph.AddEdge(from, to, graph.EdgeAttribute("label", strings.Join(labels, "\\n")))
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", from, to)
	}

	return nil
}

// Order returns the vertices in a topological order.
func (d *DOTDrawer) Order() ([]string, error) {
	order, err := graph.StableTopologicalSort(d.graph, func(a, b string) bool {
		return d.order[a] < d.order[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort graph")
	}
	return order, nil
}

// Upstream returns the vertices with an edge into the filter at index, in
// pipeline order.
func (d *DOTDrawer) Upstream(index int) ([]string, error) {
	predecessors, err := d.graph.PredecessorMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get predecessor map")
	}

	edges, ok := predecessors[VertexID(index)]
	if !ok {
		return nil, errors.Wrapf(ErrFilterNotFound, "index %d", index)
	}

	out := make([]string, 0, len(edges))
	for source := range edges {
		out = append(out, source)
	}
	slices.SortFunc(out, func(a, b string) int { return d.order[a] - d.order[b] })
	return out, nil
}

// Draw writes the graph as DOT.
func (d *DOTDrawer) Draw(w io.Writer) error {
	desc, err := d.describe()
	if err != nil {
		return errors.Wrap(err, "unable to describe graph")
	}

	return renderDOT(w, desc)
}

// DrawFile writes the graph as DOT to fileName.
func (d *DOTDrawer) DrawFile(fileName string) error {
	file, err := os.Create(fileName) //nolint:gosec // path is chosen by the user
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", fileName)
	}
	defer file.Close()

	err = d.Draw(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", fileName)
	}

	return nil
}

// FromPipeline builds the graph of p from the current state and paths of
// its filters. Disabled filters are drawn but never produce data.
func FromPipeline(p *pipeline.Pipeline, opts ...Option) (*DOTDrawer, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if p.Name() != "" {
		opts = append([]Option{WithTitle(p.Name())}, opts...)
	}

	d := NewDOTDrawer(opts...)
	filters := p.Filters()

	for i, f := range filters {
		b := f.Core()
		if err := d.AddFilter(i, b.HumanLabel(), b.State()); err != nil {
			return nil, err
		}
	}

	for j, f := range filters {
		links := make(map[string][]model.Path)
		sources := make([]string, 0)
		for _, r := range parameter.RequiredPaths(f.Core().Parameters()) {
			source := producer(filters[:j], r)
			if _, ok := links[source]; !ok {
				sources = append(sources, source)
			}
			links[source] = append(links[source], r)
		}
		for _, source := range sources {
			if err := d.AddLink(source, VertexID(j), links[source]); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// producer returns the vertex of the last enabled filter whose created
// paths overlap r, or StoreVertex.
func producer(earlier []filter.Filter, r model.Path) string {
	for i := len(earlier) - 1; i >= 0; i-- {
		b := earlier[i].Core()
		if !b.Enabled() {
			continue
		}
		for _, c := range b.CreatedPaths() {
			if c.IsSubset(r) || r.IsSubset(c) {
				return VertexID(i)
			}
		}
	}
	return StoreVertex
}

const storeColour = "#dddddd"

// stateColour returns the fill colour of a vertex in state.
func stateColour(state filter.State) (string, error) {
	var r, g, b uint8
	switch state {
	case filter.StatePreflightedOK, filter.StateExecutedOK:
		r, g, b = 152, 223, 138
	case filter.StatePreflightedError, filter.StateExecutedError:
		r, g, b = 255, 152, 150
	case filter.StateCancelled:
		r, g, b = 255, 187, 120
	case filter.StateDisabled:
		r, g, b = 199, 199, 199
	default:
		r, g, b = 255, 255, 255
	}

	rgb, err := colors.RGB(r, g, b) //nolint
	if err != nil {
		return "", err
	}
	return rgb.ToHEX().String(), nil
}

const dotTemplate = `strict digraph {
{{- range $k, $v := .Attributes}}
	{{$k}}="{{$v}}";
{{- end}}
{{- range .Statements}}
	"{{.Source}}"{{if .Target}} -> "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.Weight}} ]{{else}} [ {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.Weight}} ]{{end}};
{{- end}}
}
`

type description struct {
	Attributes map[string]string
	Statements []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	EdgeAttributes   map[string]string
	Weight           int
}

func (d *DOTDrawer) sorted(ids []string) []string {
	slices.SortFunc(ids, func(a, b string) int { return d.order[a] - d.order[b] })
	return ids
}

func (d *DOTDrawer) describe() (description, error) {
	desc := description{
		Attributes: map[string]string{"rankdir": "TB"},
		Statements: make([]statement, 0),
	}
	if d.title != "" {
		desc.Attributes["label"] = escape(d.title)
		desc.Attributes["labelloc"] = "t"
	}

	adjacencyMap, err := d.graph.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}

	for _, vertex := range d.sorted(vertices) {
		_, properties, err := d.graph.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceAttributes: escapeAll(properties.Attributes),
			Weight:           properties.Weight,
		})

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}
		for _, target := range d.sorted(targets) {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeAttributes: escapeAll(edge.Properties.Attributes),
				Weight:         edge.Properties.Weight,
			})
		}
	}

	return desc, nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func escapeAll(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = escape(v)
	}
	return out
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
