// Package provider defines how raw secret material is looked up in external
// storage systems.
//
// A Provider resolves a Reference (provider name plus a provider-specific key)
// into a SecretValue. Providers never interpret the material: callers such as
// the secret sources decide how a value is parsed and validated.
//
// # Error Handling
//
// Providers must return *NotFoundError when the referenced secret does not
// exist. Callers treat that as "not configured", which is a legitimate state
// for an optional secret, while every other error is a load failure:
//
//	v, err := p.Resolve(ctx, ref)
//	if provider.IsNotFound(err) {
//	    return nil, nil
//	}
//
// AuthError reports credential problems so that the CLI can suggest a fix.
package provider
