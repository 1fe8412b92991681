// Package orchestrator drives one input through the full intake pipeline:
// validate, persist the raw payload, classify, extract, route, and return
// the accumulated conversation context.
package orchestrator

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	"github.com/flowbit-ai/intake-agent/agent/extractor"
	nodex "github.com/flowbit-ai/intake-agent/agent/nodes"
	statex "github.com/flowbit-ai/intake-agent/agent/state"
)

type Orchestrator struct {
	store      statex.Store
	classifier contractx.Classifier
	extractors extractor.Registry
	router     contractx.ActionRouter

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	newID func() string
}

func New(
	store statex.Store,
	classifier contractx.Classifier,
	extractors extractor.Registry,
	router contractx.ActionRouter,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if extractors == nil {
		return nil, errors.New("extractor registry is required")
	}
	if router == nil {
		return nil, errors.New("action router is required")
	}

	o := &Orchestrator{
		store:      store,
		classifier: classifier,
		extractors: extractors,
		router:     router,
		newID:      uuid.NewString,
	}

	graphRunner, err := o.compileProcessInputGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// ProcessInput runs the pipeline for one payload and returns the full
// conversation context together with the id it was stored under.
func (o *Orchestrator) ProcessInput(ctx context.Context, sourceType string, content string) (string, *statex.Context, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SourceType: sourceType,
		Content:    content,
	})
	if err != nil {
		return "", nil, err
	}
	return out.ConversationID, out.Context, nil
}
