package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/flowbit-ai/intake-agent/agent/nodes"
)

func (o *Orchestrator) compileProcessInputGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.newID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("save_input_metadata",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveInputMetadata(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_input_metadata: %w", err)
	}

	if err := graph.AddLambdaNode("classify_input",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Classify(ctx, in, o.store, o.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_input: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_extractor",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchExtractor(ctx, in, o.store, o.extractors)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_extractor: %w", err)
	}

	if err := graph.AddLambdaNode("route_action",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteAction(ctx, in, o.router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_action: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_context",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeContext(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_context: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "save_input_metadata"},
		{"save_input_metadata", "classify_input"},
		{"classify_input", "dispatch_extractor"},
		{"dispatch_extractor", "route_action"},
		{"route_action", "finalize_context"},
		{"finalize_context", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.process_input"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
