// Package operation resolves and runs the named units of work a daemon
// request asks for.
//
// The daemon only sees Invocable: a name, a single argument string and a
// locator go in, a completion code or an error comes out. Dispatcher is the
// standard Invocable; it asks a Resolver for the Operation, splits the argument
// string the way a shell-like build tool would, and runs the Operation
// synchronously with the process's current standard streams.
//
// Resolvers shipped here are Registry (in-binary operations), PluginResolver
// (exported symbols in Go plugins, with the locator naming the plugin file)
// and Chain, which consults several resolvers in order.
package operation
