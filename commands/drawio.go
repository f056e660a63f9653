package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/export"
	"github.com/enzomar/archipilot/vault"
)

// DrawioCommand renders the vault's components and their relations as
// Draw.io diagrams under exports/drawio/.
type DrawioCommand struct{}

func init() {
	dispatch.RegisterCommand(&DrawioCommand{})
}

// Config describes the command.
func (c *DrawioCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:    "drawio",
		Pattern: `^(\w*)$`,
		Help:    "/drawio [component|integration|deployment] — export Draw.io diagrams",
	}
}

// Execute writes either one view or a multi-page file with all views.
func (c *DrawioCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	exporter := export.NewDrawioExporter(cmdCtx.Vault)
	idx := cmdCtx.Index()

	arg := strings.TrimSpace(strings.ToLower(args[1]))
	if arg == "" {
		path, err := exporter.ExportAll(idx)
		if err != nil {
			return dispatch.UserResponse{}, fmt.Errorf("export drawio: %w", err)
		}
		return dispatch.NewResponse(msg, "drawio",
			fmt.Sprintf("Exported all views to `%s` (%d components).", path, len(idx.ByKind(vault.KindComponent)))), nil
	}

	view, err := export.ParseView(arg)
	if err != nil {
		return dispatch.NewErrorResponse(msg, "drawio", err.Error()), nil
	}

	path, err := exporter.ExportView(idx, view)
	if err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("export drawio %s: %w", view, err)
	}
	return dispatch.NewResponse(msg, "drawio",
		fmt.Sprintf("Exported the %s view to `%s`.", view, path)), nil
}
