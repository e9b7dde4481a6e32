// Package fakes provides hand-written test doubles for secretmgr interfaces
// and the cloud SDK clients the providers depend on.
//
// Fakes are manually implemented (not generated) to give precise control
// over test behavior:
//
//	fake := fakes.NewFakeProvider("vault").
//	    WithSecret("totp/master", "0123456789abcdef0123456789abcdef")
//	src := sources.New(map[string]provider.Provider{"vault": fake}, ...)
package fakes
