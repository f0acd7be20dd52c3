package graph

import (
	"context"
	"fmt"
)

// NodeType represents the type of a node in the flow
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeCondition NodeType = "condition"
	NodeTypeCustom    NodeType = "custom"
)

// State represents the execution state passed between nodes
type State map[string]any

// NodeFunc is the function executed by a node
type NodeFunc func(context.Context, State) (State, error)

// ConditionFunc evaluates a condition and returns a branch label
type ConditionFunc func(context.Context, State) (string, error)

// Node represents a node in the flow
type Node struct {
	Name      string
	Type      NodeType
	Execute   NodeFunc
	Condition ConditionFunc     // Only for condition nodes
	Next      string            // Sole outgoing edge for non-condition nodes
	NextMap   map[string]string // For condition nodes: branch label -> next node
}

// Flow is a deterministic execution graph: every node has exactly one
// successor, chosen statically or by a condition. There is no fan-out.
type Flow struct {
	nodes     map[string]*Node
	startNode string
	maxVisits int
}

// NewFlow creates an empty flow
func NewFlow() *Flow {
	return &Flow{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

func (f *Flow) validateNode(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Condition == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Condition function", node.Name))
		}
	case NodeTypeEnd:
		// end nodes may omit Execute
	default:
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
	}
}

// AddNode adds a node to the flow
func (f *Flow) AddNode(node *Node) {
	if _, exists := f.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}

	f.validateNode(node)
	f.nodes[node.Name] = node

	if node.Type == NodeTypeStart {
		f.startNode = node.Name
	}
}

// SetStartNode sets the start node
func (f *Flow) SetStartNode(name string) {
	if _, exists := f.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	f.startNode = name
}

// SetMaxVisits sets the maximum number of visits to a node
func (f *Flow) SetMaxVisits(maxVisits int) {
	f.maxVisits = maxVisits
}

// GetNode returns a node by name
func (f *Flow) GetNode(name string) (*Node, error) {
	node, exists := f.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// Execute walks the flow from the start node until an end node is reached,
// threading the state through each node. Revisiting a node more than
// maxVisits times aborts with an error.
func (f *Flow) Execute(ctx context.Context, initialState State) (State, error) {
	if f.startNode == "" {
		return nil, fmt.Errorf("start node not set")
	}

	state := initialState
	if state == nil {
		state = make(State)
	}

	visited := make(map[string]int)
	current := f.startNode

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, exists := f.nodes[current]
		if !exists {
			return nil, fmt.Errorf("node %s not found", current)
		}

		visited[current]++
		if visited[current] > f.maxVisits {
			return nil, fmt.Errorf("infinite loop detected at node %s", current)
		}

		switch node.Type {
		case NodeTypeEnd:
			if node.Execute != nil {
				return node.Execute(ctx, state)
			}
			return state, nil

		case NodeTypeCondition:
			branch, err := node.Condition(ctx, state)
			if err != nil {
				return nil, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
			}
			next := node.NextMap[branch]
			if next == "" {
				return nil, fmt.Errorf("no branch %q defined for node %s", branch, node.Name)
			}
			current = next

		default:
			var err error
			state, err = node.Execute(ctx, state)
			if err != nil {
				return nil, fmt.Errorf("error executing node %s: %w", node.Name, err)
			}
			if node.Next == "" {
				return nil, fmt.Errorf("no next node specified for node %s", node.Name)
			}
			current = node.Next
		}
	}
}

// Builder helps build flows fluently
type Builder struct {
	flow *Flow
}

// NewBuilder creates a new flow builder
func NewBuilder() *Builder {
	return &Builder{
		flow: NewFlow(),
	}
}

// AddNode adds a node to the flow
func (b *Builder) AddNode(name string, nodeType NodeType, execute NodeFunc) *Builder {
	b.flow.AddNode(&Node{
		Name:    name,
		Type:    nodeType,
		Execute: execute,
	})
	return b
}

// AddConditionNode adds a condition node
func (b *Builder) AddConditionNode(name string, condition ConditionFunc, nextMap map[string]string) *Builder {
	b.flow.AddNode(&Node{
		Name:      name,
		Type:      NodeTypeCondition,
		Condition: condition,
		NextMap:   nextMap,
	})
	return b
}

// AddEdge connects a node to its successor
func (b *Builder) AddEdge(from, to string) *Builder {
	if node, exists := b.flow.nodes[from]; exists {
		node.Next = to
	}
	return b
}

// SetStart sets the start node
func (b *Builder) SetStart(name string) *Builder {
	b.flow.SetStartNode(name)
	return b
}

// SetMaxVisits sets the maximum number of visits to a node
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	b.flow.SetMaxVisits(maxVisits)
	return b
}

// Build returns the constructed flow
func (b *Builder) Build() *Flow {
	return b.flow
}
