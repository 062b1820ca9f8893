package earnings

import (
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/railzwaylabs/partnerops/internal/earnings/repository"
	"github.com/railzwaylabs/partnerops/internal/earnings/service"
	"github.com/railzwaylabs/partnerops/internal/tapfiliate"
	"go.uber.org/fx"
)

var Module = fx.Module("earnings.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(c *tapfiliate.Client) earningsdomain.ConversionSource { return c }),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) earningsdomain.Service { return s }),
)
