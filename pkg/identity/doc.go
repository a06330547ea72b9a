// Package identity carries the authenticated caller of a request.
//
// The JWT middleware builds an Identity from verified token claims and the
// resolved client address, then stores it in the request context:
//
//	id := identity.FromClaims(claims).
//	    WithRemoteIP(identity.ClientIP(r, cfg.IsTrustedProxy))
//	ctx = identity.Set(ctx, id)
//
//	// later, in a handler
//	id, ok := identity.Get(r.Context())
//
// ClientIP only honours X-Forwarded-For when the direct peer is a trusted
// proxy; otherwise the header is ignored and the peer address is used.
package identity
