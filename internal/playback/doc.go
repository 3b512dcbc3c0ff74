// Package playback keeps the latest known [models.Snapshot] and turns user intents into transport commands.
//
// # Sources
//
// A [Source] produces snapshots and is selected at construction time:
//   - [Poller] : reads currently-playing on a fixed interval; a failed read keeps the previous snapshot
//   - [PushSource] : receives device events over a websocket and interpolates progress between them
//
// Listeners registered with Subscribe receive every snapshot (and every fetch error, paired with the
// retained snapshot). Closing a source stops its timers; fetches already in flight complete but their
// results are dropped.
//
// # Dispatcher
//
// [Dispatcher] issues exactly one provider call per intent, computing seek positions from the snapshot
// current at call time. Commands are no-ops without an authenticated session or an addressable playback
// surface. When the source can be polled on demand, a successful command schedules one re-poll after the
// settle delay; a burst of commands shares a single re-poll.
//
// Key bindings ([Lookup], [Dispatcher.Do]). Callers suppress them while a text input has focus:
//
//	space  play/pause
//	>      next
//	<      previous
//	.      fast-forward
//	,      rewind
//	1-5    seek to 0/20/40/60/80%
package playback
