// Package enginesup supervises a subprocess-hosted interactive engine that
// speaks a newline-delimited JSON protocol.
//
// The root package defines the shared vocabulary used by the supervisor and
// by engine implementations:
//
//   - [Engine]: the protocol engine the supervisor drives and observes
//   - [TaskSnapshot], [MessageList], [ErrorNotification]: raw engine events
//   - [ServerStatus]: the public, rate-limited status value
//   - [ConnectionOptions]: how one connection attempt launches the engine
//
// Engines translate this vocabulary into their wire format. The Lean 3
// server implementation lives in engine/lean; the composition root that
// wires version negotiation, status filtering, failure classification and
// restart handling lives in supervisor.
//
// # Quick Start
//
//	eng := lean.NewEngine()
//	sup := supervisor.New(eng, supervisor.WithPrompter(p))
//	unsubscribe := sup.SubscribeStatus(func(s enginesup.ServerStatus) {
//	    fmt.Println(s.NumberOfTasks)
//	})
//	defer unsubscribe()
//	if err := sup.Start(ctx); err != nil { log.Fatal(err) }
//	defer sup.Close()
package enginesup
