package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/rotation"
	"github.com/pixeldeck/pixeldeck/pkg/models"
)

// CommandHandler executes bus commands against the device manager. It is
// the message-bus counterpart of DeviceHandler.
type CommandHandler struct {
	manager *rotation.Manager
	logger  *zap.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(manager *rotation.Manager, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		manager: manager,
		logger:  logger,
	}
}

// Handle processes a single command
func (h *CommandHandler) Handle(ctx context.Context, cmd *models.Command) error {
	h.logger.Info("Processing command",
		zap.String("type", cmd.Type),
		zap.String("target", cmd.Target),
		zap.String("uuid", cmd.UUID))

	mode, err := parseAllowlistMode(cmd.AllowlistMode)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case models.CommandRender:
		if cmd.Page == nil {
			return fmt.Errorf("page is required")
		}
		return h.manager.Render(ctx, cmd.Target, cmd.Page, cmd.Variables, mode)

	case models.CommandRenderNamed:
		if cmd.PageName == "" {
			return fmt.Errorf("page_name is required")
		}
		return h.manager.RenderNamed(ctx, cmd.Target, cmd.PageName, cmd.Variables, mode)

	case models.CommandShowMessage:
		if cmd.Page == nil {
			return fmt.Errorf("page is required")
		}
		if cmd.Duration < 1 {
			return fmt.Errorf("duration must be >= 1, got %d", cmd.Duration)
		}
		duration := time.Duration(cmd.Duration) * time.Second
		return h.manager.ShowMessage(ctx, cmd.Target, cmd.Page, duration, cmd.Variables, mode)

	case models.CommandRotationStart:
		return h.manager.StartRotation(ctx, cmd.Target)

	case models.CommandRotationStop:
		return h.manager.StopRotation(cmd.Target)

	case models.CommandRotationNext:
		return h.manager.NextPage(ctx, cmd.Target)

	case models.CommandReloadPages:
		return h.manager.ReloadPages(cmd.Target)

	case models.CommandSetConfig:
		if cmd.Config == nil {
			return fmt.Errorf("config is required")
		}
		update, err := configUpdateFromRequest(RotationConfigRequest{
			Enabled:         cmd.Config.Enabled,
			DefaultDuration: cmd.Config.DefaultDuration,
			PagesPath:       cmd.Config.PagesPath,
			AllowlistMode:   cmd.Config.AllowlistMode,
		})
		if err != nil {
			return err
		}
		return h.manager.SetConfig(ctx, cmd.Target, update)

	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}
