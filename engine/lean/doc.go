// Package lean provides an [enginesup.Engine] for the Lean 3 server.
//
// The engine spawns `<executable> --server <args...>` and talks to it over
// stdin/stdout with one JSON object per line. Requests carry a `seq_num`
// that the server echoes in its `ok` or `error` response; `all_messages`
// and `current_tasks` responses are unsolicited and surface on the
// engine's Messages and Tasks channels. Subprocess stderr, unmatched error
// responses and unexpected exits surface on the Errors channel.
//
//	engine := lean.NewEngine(lean.WithLogger(logger))
//	sup := supervisor.New(engine, supervisor.WithSettings(settings))
//	err := sup.Start(ctx)
//
// Besides the core Engine contract the engine implements
// [enginesup.Syncer] and [enginesup.RegionSetter], and offers Info and
// Complete queries.
package lean
