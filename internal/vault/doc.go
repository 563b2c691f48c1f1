// Package vault stores and refreshes per-user, per-provider OAuth
// credentials.
//
// GetValidToken is the single entry point the orchestrator uses: it returns
// an access token that is guaranteed to be outside the refresh safety window,
// refreshing through the provider's token endpoint when necessary. Refreshes
// for the same (user, provider) pair are collapsed through singleflight so
// concurrent requests cannot overwrite each other's new tokens, and a
// permanently rejected refresh token clears the stored credential so the user
// is sent back through the consent flow.
//
// OAuth clients are constructed per call from configuration; no shared client
// instance is ever mutated.
package vault
