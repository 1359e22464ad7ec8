package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/publicworks-io/regie/internal/api/v1"
)

// DelegationService and DossierTrail mirror the v1 handler dependencies so
// callers can wire the concrete services (or fakes in tests).
type (
	DelegationService = v1.DelegationService
	DossierTrail      = v1.DossierTrail
)

func registerAPIRoutes(api huma.API, delegations DelegationService, dossiers DossierTrail) {
	v1.RegisterDelegationRoutes(api, delegations)
	v1.RegisterActorRoutes(api, delegations)
	v1.RegisterDossierRoutes(api, dossiers)
}
