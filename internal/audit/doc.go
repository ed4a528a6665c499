// Package audit delivers security events to a pluggable [Sink] off the
// request path.
//
// [Dispatcher] owns a bounded buffer and one delivery goroutine. Callers emit
// and move on; with DropIfFull set a saturated sink costs a counter increment,
// never latency. Sinks: [NoOpSink], [ChannelSink], [JSONWriterSink] and
// [ZerologSink].
//
// Which events exist and when they fire is decided by the engine, not here.
package audit
