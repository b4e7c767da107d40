// Package mirror provides the request-mirroring middleware.
//
// For every inbound request a Mirror resolves the destination stream and
// snapshots the request. The request body is never read ahead of the wrapped
// handler: the bytes the handler reads are copied, up to the body limit, as
// it reads them. Once the handler returns, the envelope is handed to a
// detached goroutine that obtains an Authorization value and delivers it.
// The wrapped handler is always invoked exactly once on the calling
// goroutine, whatever happens to the mirror copy.
//
// Example:
//
//	m, err := mirror.New(routing.Single("orders"), provider, tr, mirror.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer m.Close(ctx)
//	http.ListenAndServe(":8080", m.Handler(app))
package mirror
