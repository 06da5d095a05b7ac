package server

import (
	"log/slog"

	"wallet-service/internal/config"
	"wallet-service/internal/domain"
	"wallet-service/internal/metrics"
	"wallet-service/internal/service"
)

type services struct {
	wallet         *service.WalletService
	reconciliation *service.ReconciliationService
	admin          *service.AdminService
}

func newServices(store domain.Store, n domain.Notifier, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *services {
	return &services{
		wallet:         service.NewWalletService(store, n, m, logger),
		reconciliation: service.NewReconciliationService(store, n, m, logger),
		admin:          service.NewAdminService(store, n, m, cfg.AdjustMaxRetries, logger),
	}
}
