package appbootstrap

import (
	"sentinel-desk/api"
	"sentinel-desk/config"
	"sentinel-desk/core/auth"
	"sentinel-desk/core/notify"
	"sentinel-desk/core/rbac"
	"sentinel-desk/core/requests"
	"sentinel-desk/core/store"
	"sentinel-desk/core/utils"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	workers    []api.BackgroundWorker
}

func composeRuntime(cfg *config.AppConfig, db *store.DB, logger *utils.Logger) (*runtimeComposition, error) {
	requestsStore := store.NewRequestsStore(db)
	rolesStore := store.NewRoleRecordsStore(db)
	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}
	resolver := auth.NewResolver(rolesStore, policy, logger)
	sender := notify.NewHTTPWebhookSender(cfg.Teams.EffectiveTimeout())
	notifier := notify.NewNotifier(cfg.Teams, sender, logger)
	requestsSvc := requests.NewService(cfg, requestsStore, notifier, logger)
	reminder := requests.NewReminderScheduler(cfg, requestsStore, notifier, logger)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			RequestsStore: requestsStore,
			RolesStore:    rolesStore,
			RequestsSvc:   requestsSvc,
			Resolver:      resolver,
			Notifier:      notifier,
		},
		workers: []api.BackgroundWorker{reminder},
	}, nil
}
