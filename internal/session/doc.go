// Package session owns the bearer-token pair used by every outbound call.
//
// A [Session] is constructed once with a [TokenStore] (durable get/set/clear of the two tokens) and a
// [Refresher] (the exchange of a refresh token for a new access token). Callers read the access token
// through [Session.AccessToken]; the only writers are [Session.Login], [Session.Logout] and
// [Session.Refresh].
//
// # Single-flight refresh
//
// [Session.Refresh] is deduplicated process-wide: concurrent callers that saw the same stale token share
// one refresh call. A caller whose stale token has already been replaced gets the current token without
// a second network call. A failed refresh clears the store, fires the expiry callback (the "return to
// login" signal) and fails every waiter with [shared.ErrAuthExpired].
//
// # Refreshers
//
//   - [BackendRefresher] : POST {backend}/refresh_token {refresh_token}
//   - [OAuthRefresher] : refresh directly against the Spotify token endpoint with golang.org/x/oauth2
package session
