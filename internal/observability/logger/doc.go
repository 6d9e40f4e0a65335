// Package logger expone el logger Zap del gateway con scoping por contexto.
//
//   - Singleton: una instancia global inicializada con Init() al arrancar `serve`.
//   - Context scoping: el middleware de logging inyecta un logger con request_id,
//     method y path; services lo recuperan con From(ctx) y agregan layer/component/op.
//   - Environments: APP_ENV local/staging usa consola con colores, production usa JSON.
//   - Datos sensibles: Email y ReferralCode enmascaran su valor; tokens y passwords
//     no tienen campo y no se loguean.
//
// Uso típico en un service:
//
//	log := logger.From(ctx).With(
//	    logger.Layer("service"),
//	    logger.Component("referral"),
//	    logger.Op("CreateForOwner"),
//	)
//	log.Info("referral created", logger.UserID(ownerID))
package logger
