// Package repository define las entidades y los contratos de persistencia del gateway.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (PostgreSQL o memoria).
//
// Las implementaciones concretas viven en internal/store/pg e internal/store/memory.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        auth / referral services, controllers        │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│     UserRepository, ReferralRepository, Session     │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	              ┌─────────┴─────────┐
//	              ▼                   ▼
//	       ┌─────────────┐     ┌─────────────┐
//	       │  store/pg   │     │ store/memory│
//	       └─────────────┘     └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Las restricciones de unicidad del store son la fuente de verdad;
//     una violación se reporta como *ConflictError (errors.Is(err, ErrConflict))
//   - Errores de conectividad se envuelven en ErrUnavailable
package repository
