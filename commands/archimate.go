package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/export"
)

// ArchimateCommand exports the vault as ArchiMate 3.0 Model Exchange
// files under exports/archimate/.
type ArchimateCommand struct{}

func init() {
	dispatch.RegisterCommand(&ArchimateCommand{})
}

// Config describes the command.
func (c *ArchimateCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:    "archimate",
		Pattern: `^(\w*)$`,
		Help:    "/archimate [business|application|technology] — export an ArchiMate model",
	}
}

// Execute writes the full model or a single layer.
func (c *ArchimateCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	exporter := export.NewArchiMateExporter(cmdCtx.Vault)
	idx := cmdCtx.Index()

	arg := strings.TrimSpace(strings.ToLower(args[1]))
	if arg == "" {
		path, err := exporter.ExportModel(idx)
		if err != nil {
			return dispatch.UserResponse{}, fmt.Errorf("export archimate: %w", err)
		}
		return dispatch.NewResponse(msg, "archimate",
			fmt.Sprintf("Exported the full ArchiMate model to `%s`.", path)), nil
	}

	layer, err := export.ParseLayer(arg)
	if err != nil {
		return dispatch.NewErrorResponse(msg, "archimate", err.Error()), nil
	}

	path, err := exporter.ExportLayer(idx, layer)
	if err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("export archimate %s: %w", layer, err)
	}
	return dispatch.NewResponse(msg, "archimate",
		fmt.Sprintf("Exported the %s layer to `%s`.", layer, path)), nil
}
