// Package metrics exposes Prometheus metrics for a crawl: selector request
// counts, latency and retries, persisted row counters and the visited-node
// gauge. A Collector satisfies both selector.RequestRecorder and
// crawler.Observer.
package metrics
