// Package entitlement maps a plan record to the capabilities it grants.
//
// There are two tiers, free and pro. For is total: any plan it does not
// recognise, including a record that fails validation, evaluates to free.
//
//	svc := entitlement.NewService(entitlement.NewPostgresStore(pool))
//	set, plan := svc.Entitlements(ctx, id)
//	if !set.Allows(entitlement.FeatureVoice) {
//		return apperr.ErrPaymentRequired
//	}
//
// Plan records are written only by the reconcile package. Everything else
// reads them through Service.
package entitlement
