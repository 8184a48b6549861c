// Package mcp exposes process maps, organization and outcome analyses as MCP
// tools over stdio.
package mcp

import (
	"context"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"procmap/internal/backend"
	"procmap/internal/config"
	"procmap/internal/viewstate"
)

const (
	serverName    = "procmap"
	serverVersion = "0.3.0"
)

// Server holds the state for the MCP server.
type Server struct {
	cfg    *config.AppConfig
	client backend.Client
	store  *viewstate.Store
	now    func() time.Time
}

// NewServer creates a new MCP server.
func NewServer(cfg *config.AppConfig, client backend.Client) *Server {
	store := viewstate.NewStore(viewstate.Reduce(viewstate.Initial(),
		viewstate.SetDisplayMetric{Metric: cfg.DisplayMetric},
		viewstate.SetPathThreshold{Value: cfg.PathThreshold},
	))
	return &Server{
		cfg:    cfg,
		client: client,
		store:  store,
		now:    time.Now,
	}
}

// Build returns the protocol server with every tool registered.
func (s *Server) Build() *sdk.Server {
	srv := sdk.NewServer(&sdk.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.registerTools(srv)
	return srv
}

// Serve runs the MCP session over stdin/stdout until ctx is done or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("backend", s.cfg.Backend.BaseURL).Msg("Starting MCP server on stdio")
	return s.Build().Run(ctx, &sdk.StdioTransport{})
}
