// Package watch re-runs build tasks when their source files change. It
// watches the directories named by the watch bindings, debounces bursts of
// events per binding, runs the bound tasks without ever overlapping two
// runs of the same binding, and signals connected browsers to reload.
package watch
