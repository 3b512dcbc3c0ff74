// Package services wraps the two HTTP APIs the player talks to.
//
// # Session Client
//
// Every request goes through [Client.Do], which attaches the access token according to an [AuthMode]:
//   - [AuthBearer] : Authorization header (Spotify Web API)
//   - [AuthQuery] : sp_token query parameter (clouder move_track)
//   - [AuthNone] : unauthenticated backend reads
//
// On a 401 the client asks the session for a refreshed token (deduplicated across concurrent callers) and
// retries exactly once. A 401 on the retry revokes the session and returns [shared.ErrAuthExpired].
//
// # Spotify Implementation
//
// [SpotifyService] implements [PlayerService] and [PlaylistService]:
//   - GET /me/player/currently-playing, normalized into [models.Snapshot] (204 means idle)
//   - PUT /me/player/{play,pause}, POST /me/player/{next,previous}, PUT /me/player/seek?position_ms=
//   - GET /me/playlists, following next links under a [rate.Limiter]
//
// [NewOAuthConfig] builds the authorization-code config with the playback scopes.
//
// # Clouder Implementation
//
// [ClouderService] implements [CategoryService] against the backend:
//   - GET /clouder_playlists/{id}/clouder_week
//   - GET /clouder_weeks/{week}/sp_playlists
//   - GET /clouder_weeks
//   - POST /clouder_playlists/move_track?sp_token=
//
// # Error Handling
//
// Services wrap sentinel errors from the shared package:
//   - [shared.ErrPlaybackFetch] : currently-playing read failed
//   - [shared.ErrCommand] : transport write failed
//   - [shared.ErrCategoryFetch] : week or week playlists could not be read
//   - [shared.ErrAuthExpired] : refresh failed or the refreshed token was rejected
//
// Non-2xx responses carry a [shared.StatusError] in the chain.
package services
