package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for lexgraph resources.
	uriScheme = "lexgraph://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "plan",
		Name:        "orchestrator-plan",
		Description: "Steps of the orchestrated answer loop",
		MIMEType:    "application/json",
	}, s.handlePlanResource)

	// Template for the version in force on a date.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "versions/{reference}/{date}",
		Name:        "valid-version",
		Description: "Expression in force for a reference (e.g. work:mica) on a YYYY-MM-DD date",
		MIMEType:    "application/json",
	}, s.handleVersionResource)
}

func (s *Server) handlePlanResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, domain.PlanSteps())
}

func (s *Server) handleVersionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	reference, date := extractVersionParams(req.Params.URI)
	if reference == "" || date == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	d, err := domain.ParseDate(date)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	version, err := s.ports.Actions.GetValidVersion(ctx, reference, d)
	if err != nil {
		if domain.IsClientError(err) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("resolving version: %w", err)
	}
	return jsonResource(req.Params.URI, versionOutput(version))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractVersionParams splits lexgraph://versions/{reference}/{date}.
func extractVersionParams(uri string) (reference, date string) {
	const prefix = uriScheme + "versions/"

	if !strings.HasPrefix(uri, prefix) {
		return "", ""
	}
	rest := strings.TrimPrefix(uri, prefix)

	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", ""
	}
	return rest[:i], rest[i+1:]
}
