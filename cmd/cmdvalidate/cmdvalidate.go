// Package cmdvalidate checks that the configured credentials can reach the
// admin api.
package cmdvalidate

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pinpt/powerbi-metadata/pkg/conf"
	"github.com/pinpt/powerbi-metadata/pkg/powerbi"
)

type Opts struct {
	Logger hclog.Logger
	Config conf.Config
}

func Run(ctx context.Context, opts Opts) error {
	logger := opts.Logger.Named("validate")
	manager := powerbi.NewTokenManager(logger)
	creds := powerbi.Credentials{
		TenantID: opts.Config.TenantID,
		ClientID: opts.Config.ClientID,
		Username: opts.Config.Username,
		Password: opts.Config.Password,
	}
	client := powerbi.NewClient(logger, opts.Config.BaseURL, manager.TokenFunc(ctx, creds))
	if err := powerbi.Validate(ctx, client); err != nil {
		return err
	}
	logger.Info("credentials are valid")
	return nil
}
