// Package contracts defines interfaces for provider client abstractions.
// These interfaces enable dependency injection for testing.
package contracts

// KeychainClient abstracts OS keychain operations for testing
type KeychainClient interface {
	// Get retrieves the password stored for service/account.
	Get(service, account string) (string, error)
}
