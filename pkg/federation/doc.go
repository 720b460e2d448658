// Package federation composes UI from modules that separately deployed
// applications ("remotes") expose at runtime.
//
// A Registry maps remote names to LoaderFuncs. Loader.Mount resolves one
// module asynchronously and returns a Handle that renders a loading
// placeholder, an inline error alert, or the module with the host's props.
// Failures of one remote never affect the others, and an unregistered
// remote fails without any loader call.
//
// HTTPRemote loads from a remote serving a remoteEntry.json manifest;
// Exposer is the matching server side.
package federation
