package payment

import (
	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	"github.com/railzwaylabs/partnerops/internal/payment/repository"
	"github.com/railzwaylabs/partnerops/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(webhook.NewService),
	fx.Provide(func(s *webhook.Service) paymentdomain.Service { return s }),
)
