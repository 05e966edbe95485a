package cli

import (
	"github.com/davidthor/auractl/pkg/config"
	"github.com/davidthor/auractl/pkg/envfile"
	"github.com/davidthor/auractl/pkg/instance"
	"github.com/davidthor/auractl/pkg/secrets"
	"go.uber.org/zap"
)

// newReferenceManager returns the resolver for env: and awssm: references.
// env: references fall back to the dotenv files next to the config file
// (.env, .env.local, .env.<environment>, .env.<environment>.local).
func newReferenceManager(cfg *config.Config, environment string, logger *zap.Logger) *secrets.Manager {
	dir := cfg.ConfigDir
	if dir == "" {
		dir = "."
	}
	env := instance.NewResolver(cfg, secrets.NewManager()).Environment(environment)

	vars, err := envfile.Load(dir, env)
	if err != nil {
		logger.Warn("ignoring dotenv files", zap.String("dir", dir), zap.Error(err))
		vars = nil
	} else if len(vars) > 0 {
		logger.Debug("loaded dotenv files", zap.String("dir", dir), zap.Int("variables", len(vars)))
	}

	m := secrets.NewManager()
	m.RegisterProvider(secrets.NewEnvProviderWithDefaults(vars))
	m.RegisterProvider(secrets.NewSecretsManagerProvider(nil))
	return m
}
