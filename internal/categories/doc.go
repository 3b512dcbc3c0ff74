// Package categories resolves the weekly category playlists of the playing context and moves the current track into one of them.
//
// [Resolver] caches results per source playlist id for the life of the process. A playlist the backend
// does not map to a week resolves to no categories and is not cached, so it is looked up again next time.
//
// [Mover] requires a playing track, a playlist context and a "trash" category among the cached
// categories of that playlist. Unmet preconditions fail with [shared.ErrPrecondition] without any
// network call.
package categories
