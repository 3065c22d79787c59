package service

import (
	"context"

	"github.com/guillermoBallester/causeway/internal/core/port"
)

// ExplorerService fronts the schema explorer adapter. Kept as a thin layer so
// MCP handlers depend on core services only, never on adapters directly.
type ExplorerService struct {
	explorer port.SchemaExplorer
}

func NewExplorerService(explorer port.SchemaExplorer) *ExplorerService {
	return &ExplorerService{explorer: explorer}
}

func (s *ExplorerService) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	return s.explorer.ListTables(ctx)
}

func (s *ExplorerService) DescribeTable(ctx context.Context, schema, tableName string) (*port.TableDetail, error) {
	return s.explorer.DescribeTable(ctx, schema, tableName)
}
