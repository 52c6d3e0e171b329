// Package crawler defines the types shared by the sweep worker, the lookup
// service probers and the status sinks.
package crawler
