package partner

import (
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/railzwaylabs/partnerops/internal/partner/domain"
	"github.com/railzwaylabs/partnerops/internal/partner/repository"
	"github.com/railzwaylabs/partnerops/internal/partner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("partner.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(
		func(s *service.Service) domain.Service { return s },
		func(s *service.Service) earningsdomain.AffiliateDirectory { return s },
	),
)
