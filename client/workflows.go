package client

import (
	"context"
	"encoding/json"
	"net/http"
)

// WorkflowsService manages workflows and their editor graphs.
type WorkflowsService struct {
	client *Client
}

func workflowPath(id string, rest ...string) string {
	p := "/v1/workflows/" + id
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// List returns the tenant's workflows, newest first, without step documents.
func (s *WorkflowsService) List(ctx context.Context) ([]*Workflow, error) {
	var out []*Workflow
	if _, err := s.client.do(ctx, http.MethodGet, "/v1/workflows", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores a workflow holding only a start step.
func (s *WorkflowsService) Create(ctx context.Context, name string) (*Workflow, error) {
	var out Workflow
	body := map[string]string{"name": name}
	if _, err := s.client.do(ctx, http.MethodPost, "/v1/workflows", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one workflow with its documents.
func (s *WorkflowsService) Get(ctx context.Context, id string) (*Workflow, error) {
	var out Workflow
	if _, err := s.client.do(ctx, http.MethodGet, workflowPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a workflow.
func (s *WorkflowsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.do(ctx, http.MethodDelete, workflowPath(id), nil, nil, nil)
	return err
}

// Graph returns the editor graph of a workflow.
func (s *WorkflowsService) Graph(ctx context.Context, id string) (*Graph, error) {
	var out Graph
	if _, err := s.client.do(ctx, http.MethodGet, workflowPath(id, "graph"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveGraph writes an edited graph back to the workflow.
func (s *WorkflowsService) SaveGraph(ctx context.Context, id string, g Graph) (*SaveResult, error) {
	return s.save(ctx, http.MethodPut, workflowPath(id, "graph"), g)
}

// ImportSteps replaces the step map with doc, which the server validates.
func (s *WorkflowsService) ImportSteps(ctx context.Context, id string, doc json.RawMessage) (*SaveResult, error) {
	return s.save(ctx, http.MethodPut, workflowPath(id, "steps"), doc)
}

// ApplyCommands previews editor commands against base, or against the
// stored graph when base is nil. Commands are {"kind": ...} objects.
func (s *WorkflowsService) ApplyCommands(ctx context.Context, id string, base *Graph, commands []json.RawMessage) (*Graph, error) {
	body := struct {
		Graph    *Graph            `json:"graph,omitempty"`
		Commands []json.RawMessage `json:"commands"`
	}{Graph: base, Commands: commands}

	var out Graph
	if _, err := s.client.do(ctx, http.MethodPost, workflowPath(id, "graph", "commands"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *WorkflowsService) save(ctx context.Context, method, path string, body any) (*SaveResult, error) {
	var out SaveResult
	meta, err := s.client.do(ctx, method, path, nil, body, &out)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		out.Warnings = meta.Warnings
	}
	return &out, nil
}
