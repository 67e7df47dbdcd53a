// Package probe implements the entry/exit correlation engine shared by the
// latency and transaction probes.
//
// An entry callback records a monotonic timestamp for the calling execution
// context in a fixed-capacity StartTable. The matching exit callback takes the
// timestamp back out, computes the elapsed duration and hands it to a Sink:
//
//   - LatencySink classifies the duration into a log2 histogram and the return
//     code into band, negative and zero/non-zero counters.
//   - TxSink reads three caller-supplied arguments, marshals a fixed 48-byte
//     record and submits it to a bounded Exporter.
//
// Nothing on the entry/exit path allocates, blocks or returns an error. Every
// failure (missed start, full table, full exporter, unreadable argument) is a
// counted drop reported through Stats.
package probe
