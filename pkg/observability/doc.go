/*
Package observability provides tools for monitoring the notebook kernel.

It combines lifecycle hooks so that several observers can watch one kernel,
and streams kernel events as JSON Lines for auditing and external tooling.
*/
package observability
