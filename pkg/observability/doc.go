/*
Package observability provides monitoring for the conversation engine.

It turns engine lifecycle hooks into Prometheus metrics so hosts can
watch transition volume, emission latency classes and configuration
diagnostics across flows.
*/
package observability
